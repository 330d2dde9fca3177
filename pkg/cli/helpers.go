package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/funnelhq/funnel/pkg/apierror"
)

// describeAuthError gives the auth provider first right of refusal on a
// failed operation; a claimed session-expired error becomes a login hint
// instead of a raw error dump.
func describeAuthError(s *stack, ctx context.Context, err error) error {
	if _, handled := s.auth.HandleError(ctx, err); handled || apierror.IsSessionExpired(err) {
		return fmt.Errorf("session expired, run `funnel login`")
	}
	return err
}

// printJSON pretty-prints a raw record
func printJSON(s *stack, raw json.RawMessage) error {
	var buf interface{}
	if err := json.Unmarshal(raw, &buf); err != nil {
		return fmt.Errorf("malformed record: %w", err)
	}
	pretty, err := json.MarshalIndent(buf, "", "  ")
	if err != nil {
		return err
	}
	s.printf("%s\n", pretty)
	return nil
}
