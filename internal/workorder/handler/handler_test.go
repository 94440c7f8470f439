package handler

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/printmes/internal/config"
	"github.com/bitfantasy/printmes/internal/workorder/service"
)

func TestGetPaginationUsesConfig(t *testing.T) {
	defPrev, maxPrev := defaultPageSize, maxPageSize
	defer func() { defaultPageSize, maxPageSize = defPrev, maxPrev }()

	NewHandlers(&service.Services{}, nil, config.PageConfig{DefaultSize: 10, MaxSize: 50})

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/work-orders", nil)
	page, size := GetPagination(c)
	if page != 1 || size != 10 {
		t.Fatalf("pagination = %d/%d, want 1/10 from config", page, size)
	}

	// gin 会缓存已解析的 query，每个请求需要新的测试上下文
	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/work-orders?page=3&page_size=500", nil)
	page, size = GetPagination(c)
	if page != 3 || size != 10 {
		t.Fatalf("pagination = %d/%d, want page_size above max to fall back to default", page, size)
	}

	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/work-orders?page_size=50", nil)
	if _, size = GetPagination(c); size != 50 {
		t.Fatalf("page_size = %d, want configured max accepted", size)
	}
}
