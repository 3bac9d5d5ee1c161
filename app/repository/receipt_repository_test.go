package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampPage(t *testing.T) {
	tests := []struct {
		offset, limit       int
		wantOffset, wantLim int
	}{
		{offset: 0, limit: 20, wantOffset: 0, wantLim: 20},
		{offset: -5, limit: 20, wantOffset: 0, wantLim: 20},
		{offset: 40, limit: 0, wantOffset: 40, wantLim: maxListLimit},
		{offset: 10, limit: 1000, wantOffset: 10, wantLim: maxListLimit},
	}
	for _, tc := range tests {
		o, l := clampPage(tc.offset, tc.limit)
		assert.Equal(t, tc.wantOffset, o)
		assert.Equal(t, tc.wantLim, l)
	}
}

func TestFactoryReturnsSingleton(t *testing.T) {
	f := NewFactory(nil)
	assert.Same(t, f.GetRepositories(), f.GetRepositories())
	assert.NotNil(t, f.GetReceiptRepository())
}
