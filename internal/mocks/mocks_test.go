package mocks_test

import (
	"github.com/xkilldash9x/codevolver/api/schemas"
	"github.com/xkilldash9x/codevolver/internal/assets"
	"github.com/xkilldash9x/codevolver/internal/config"
	"github.com/xkilldash9x/codevolver/internal/mocks"
)

var (
	_ config.Interface  = (*mocks.MockConfig)(nil)
	_ schemas.LLMClient = (*mocks.MockLLMClient)(nil)
	_ assets.Database   = (*mocks.MockAssetDatabase)(nil)
)
