package production_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MrJamesThe3rd/bananas/internal/production"
)

func TestNewPagination(t *testing.T) {
	tests := []struct {
		name                  string
		total, page, pageSize int
		want                  production.Pagination
	}{
		{
			name:  "MiddlePage",
			total: 95, page: 3, pageSize: 20,
			want: production.Pagination{Total: 95, PageCount: 5, CurrentPage: 3, PageSize: 20, From: 41, To: 60},
		},
		{
			name:  "LastPartialPage",
			total: 95, page: 5, pageSize: 20,
			want: production.Pagination{Total: 95, PageCount: 5, CurrentPage: 5, PageSize: 20, From: 81, To: 95},
		},
		{
			name:  "Empty",
			total: 0, page: 1, pageSize: 20,
			want: production.Pagination{Total: 0, PageCount: 0, CurrentPage: 1, PageSize: 20, From: 1, To: 0},
		},
		{
			name:  "ExactFit",
			total: 40, page: 2, pageSize: 20,
			want: production.Pagination{Total: 40, PageCount: 2, CurrentPage: 2, PageSize: 20, From: 21, To: 40},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, production.NewPagination(tt.total, tt.page, tt.pageSize))
		})
	}
}
