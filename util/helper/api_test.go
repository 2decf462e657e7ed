package helper_util

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaginate(t *testing.T) {
	tests := []struct {
		total, limit, offset int
		want                 Page
	}{
		{10, 3, 0, Page{0, 3}},
		{10, 3, 9, Page{9, 10}},
		{10, 3, 20, Page{10, 10}},
		{10, 0, 2, Page{2, 10}},
		{0, 5, 0, Page{0, 0}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Paginate(tt.total, tt.limit, tt.offset))
	}
}

func TestGetPaginationParams(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/policies", nil)
	limit, offset, err := GetPaginationParams(c)
	require.NoError(t, err)
	assert.Equal(t, 100, limit)
	assert.Equal(t, 0, offset)

	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/policies?limit=5&offset=10", nil)
	limit, offset, err = GetPaginationParams(c)
	require.NoError(t, err)
	assert.Equal(t, 5, limit)
	assert.Equal(t, 10, offset)

	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/policies?limit=x", nil)
	_, _, err = GetPaginationParams(c)
	assert.Error(t, err)
}
