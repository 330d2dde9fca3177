package leadimport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
)

// DefaultGraphURL is the Facebook Graph API base used outside tests
const DefaultGraphURL = "https://graph.facebook.com/v19.0"

// GraphConfig holds the Facebook app settings for the import flow
type GraphConfig struct {
	AppID       string
	AppSecret   string
	RedirectURL string

	// BaseURL overrides the Graph endpoint, used by tests and the devserver
	BaseURL string
}

// OAuth2 returns the authorization-code config for the interactive consent
// step of the import flow
func (c GraphConfig) OAuth2() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.AppID,
		ClientSecret: c.AppSecret,
		RedirectURL:  c.RedirectURL,
		Scopes:       []string{"pages_show_list", "leads_retrieval"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://www.facebook.com/v19.0/dialog/oauth",
			TokenURL: "https://graph.facebook.com/v19.0/oauth/access_token",
		},
	}
}

func (c GraphConfig) baseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return DefaultGraphURL
}

// Page is a Facebook page the user administers
type Page struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AccessToken string `json:"access_token"`
}

// LeadForm is a lead-ads form attached to a page
type LeadForm struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// FieldData is one answered form field
type FieldData struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// GraphLead is a raw lead submission from the Graph API
type GraphLead struct {
	ID          string      `json:"id"`
	CreatedTime time.Time   `json:"created_time"`
	FieldData   []FieldData `json:"field_data"`
}

// Field returns the first value of a named form field, or ""
func (l GraphLead) Field(name string) string {
	for _, f := range l.FieldData {
		if f.Name == name && len(f.Values) > 0 {
			return f.Values[0]
		}
	}
	return ""
}

// GraphClient is a minimal Graph API consumer for the lead import flow
type GraphClient struct {
	cfg   GraphConfig
	token string
	http  *http.Client
}

// NewGraphClient creates a client using the given user or page access token
func NewGraphClient(cfg GraphConfig, token string) *GraphClient {
	return &GraphClient{
		cfg:   cfg,
		token: token,
		http:  &http.Client{Timeout: 30 * time.Second},
	}
}

// ExchangeLongLived swaps a short-lived consent token for a long-lived one
// suitable for the sync daemon
func (g *GraphClient) ExchangeLongLived(ctx context.Context, shortToken string) (string, error) {
	q := url.Values{}
	q.Set("grant_type", "fb_exchange_token")
	q.Set("client_id", g.cfg.AppID)
	q.Set("client_secret", g.cfg.AppSecret)
	q.Set("fb_exchange_token", shortToken)

	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := g.get(ctx, g.cfg.baseURL()+"/oauth/access_token?"+q.Encode(), &out); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("token exchange returned no access token")
	}
	return out.AccessToken, nil
}

// ListPages returns the pages the token's user administers
func (g *GraphClient) ListPages(ctx context.Context) ([]Page, error) {
	var pages []Page
	err := g.paginate(ctx, g.withToken("/me/accounts", g.token), func(data json.RawMessage) error {
		var batch []Page
		if err := json.Unmarshal(data, &batch); err != nil {
			return err
		}
		pages = append(pages, batch...)
		return nil
	})
	return pages, err
}

// ListForms returns the lead forms attached to a page. Pages carry their own
// access tokens; pass the one returned by ListPages.
func (g *GraphClient) ListForms(ctx context.Context, pageID, pageToken string) ([]LeadForm, error) {
	var forms []LeadForm
	path := fmt.Sprintf("/%s/leadgen_forms", url.PathEscape(pageID))
	err := g.paginate(ctx, g.withToken(path, pageToken), func(data json.RawMessage) error {
		var batch []LeadForm
		if err := json.Unmarshal(data, &batch); err != nil {
			return err
		}
		forms = append(forms, batch...)
		return nil
	})
	return forms, err
}

// ListLeads walks every page of a form's lead submissions
func (g *GraphClient) ListLeads(ctx context.Context, formID, pageToken string) ([]GraphLead, error) {
	var leads []GraphLead
	path := fmt.Sprintf("/%s/leads", url.PathEscape(formID))
	err := g.paginate(ctx, g.withToken(path, pageToken), func(data json.RawMessage) error {
		var batch []GraphLead
		if err := json.Unmarshal(data, &batch); err != nil {
			return err
		}
		leads = append(leads, batch...)
		return nil
	})
	return leads, err
}

func (g *GraphClient) withToken(path, token string) string {
	q := url.Values{}
	q.Set("access_token", token)
	return g.cfg.baseURL() + path + "?" + q.Encode()
}

// paginate follows the Graph cursor chain: each response carries data plus
// an optional absolute paging.next URL
func (g *GraphClient) paginate(ctx context.Context, next string, visit func(json.RawMessage) error) error {
	for next != "" {
		var envelope struct {
			Data   json.RawMessage `json:"data"`
			Paging struct {
				Next string `json:"next"`
			} `json:"paging"`
		}
		if err := g.get(ctx, next, &envelope); err != nil {
			return err
		}
		if envelope.Data != nil {
			if err := visit(envelope.Data); err != nil {
				return fmt.Errorf("malformed graph response: %w", err)
			}
		}
		next = envelope.Paging.Next
	}
	return nil
}

func (g *GraphClient) get(ctx context.Context, rawURL string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build graph request: %w", err)
	}
	resp, err := g.http.Do(req)
	if err != nil {
		return fmt.Errorf("graph request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read graph response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("graph request failed with status %d: %s", resp.StatusCode, graphErrorMessage(payload))
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return fmt.Errorf("malformed graph response: %w", err)
	}
	return nil
}

func graphErrorMessage(payload []byte) string {
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(payload, &body); err != nil || body.Error.Message == "" {
		return string(payload)
	}
	return body.Error.Message
}
