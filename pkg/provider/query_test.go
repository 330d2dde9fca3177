package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name   string
		params ListParams
		want   map[string][]string
	}{
		{
			name: "server pagination with defaults",
			params: ListParams{
				Pagination: Pagination{Mode: PaginationServer},
			},
			want: map[string][]string{"page": {"1"}, "page_size": {"25"}},
		},
		{
			name: "server pagination explicit",
			params: ListParams{
				Pagination: Pagination{Mode: PaginationServer, Page: 3, PageSize: 50},
			},
			want: map[string][]string{"page": {"3"}, "page_size": {"50"}},
		},
		{
			name: "off mode sends no paging params",
			params: ListParams{
				Pagination: Pagination{Mode: PaginationOff, Page: 3, PageSize: 50},
			},
			want: map[string][]string{},
		},
		{
			name: "recognized filters",
			params: ListParams{
				Filters: Filters{
					"q":           {"smith"},
					"lead_id":     {"l-1"},
					"business_id": {"b-9"},
				},
			},
			want: map[string][]string{
				"q":           {"smith"},
				"lead_id":     {"l-1"},
				"business_id": {"b-9"},
			},
		},
		{
			name: "assigned user ids comma joined",
			params: ListParams{
				Filters: Filters{"assigned_user": {"u-1", "u-2", "u-3"}},
			},
			want: map[string][]string{"assigned_user_id": {"u-1,u-2,u-3"}},
		},
		{
			name: "assigned_user.id alias",
			params: ListParams{
				Filters: Filters{"assigned_user.id": {"u-4"}},
			},
			want: map[string][]string{"assigned_user_id": {"u-4"}},
		},
		{
			name: "unknown filters silently dropped",
			params: ListParams{
				Filters: Filters{"color": {"red"}, "q": {"x"}},
			},
			want: map[string][]string{"q": {"x"}},
		},
		{
			name: "sorters",
			params: ListParams{
				Sorters: []Sorter{{Field: "created_at", Desc: true}, {Field: "name"}},
			},
			want: map[string][]string{"sort": {"-created_at", "name"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildQuery(tt.params)
			assert.Equal(t, len(tt.want), len(got))
			for k, v := range tt.want {
				assert.Equal(t, v, got[k], k)
			}
		})
	}
}
