package service

import (
	"testing"

	"gamemarket/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseListingLine(t *testing.T) {
	t.Run("完整行解析", func(t *testing.T) {
		listing := ParseListingLine(
			"warrior01:pass123 | lv=30 | server=Asia | skins=12 | price=5000 | 稀有皮肤多", "gold")
		require.NotNil(t, listing)
		assert.Equal(t, "warrior01", listing.Username)
		assert.Equal(t, "pass123", listing.Password)
		assert.Equal(t, 30, listing.Level)
		assert.Equal(t, "Asia", listing.Server)
		assert.Equal(t, 12, listing.Skins)
		assert.Equal(t, int64(5000), listing.Price)
		assert.Equal(t, "稀有皮肤多", listing.Extra)
		assert.Equal(t, "gold", listing.Category)
		assert.Equal(t, model.SaleTypeFixed, listing.SaleType)
		assert.Equal(t, model.ListingStatusAvailable, listing.Status)
	})

	t.Run("字段别名", func(t *testing.T) {
		listing := ParseListingLine("a:b | level=10 | sv=EU | skin=3", "silver")
		require.NotNil(t, listing)
		assert.Equal(t, 10, listing.Level)
		assert.Equal(t, "EU", listing.Server)
		assert.Equal(t, 3, listing.Skins)
	})

	t.Run("行内分类覆盖任务级分类", func(t *testing.T) {
		listing := ParseListingLine("a:b | cat=diamond", "gold")
		require.NotNil(t, listing)
		assert.Equal(t, "diamond", listing.Category)
	})

	t.Run("未识别token全部收进Extra", func(t *testing.T) {
		listing := ParseListingLine("a:b | 满星英雄 | rank=diamond", "gold")
		require.NotNil(t, listing)
		// rank 不在规则表里，按原样收集
		assert.Equal(t, "满星英雄 | rank=diamond", listing.Extra)
	})

	t.Run("大小写和空白容忍", func(t *testing.T) {
		listing := ParseListingLine("  a:b |  LV = 25  | Server=NA ", "gold")
		require.NotNil(t, listing)
		assert.Equal(t, 25, listing.Level)
		assert.Equal(t, "NA", listing.Server)
	})

	t.Run("无凭据的行跳过", func(t *testing.T) {
		assert.Nil(t, ParseListingLine("lv=30 | server=Asia", "gold"))
		assert.Nil(t, ParseListingLine("", "gold"))
		assert.Nil(t, ParseListingLine("   ", "gold"))
	})

	t.Run("注释行跳过", func(t *testing.T) {
		assert.Nil(t, ParseListingLine("# 这批是三月收的账号", "gold"))
	})

	t.Run("数字字段非法时保持零值", func(t *testing.T) {
		listing := ParseListingLine("a:b | lv=abc | price=xyz", "gold")
		require.NotNil(t, listing)
		assert.Equal(t, 0, listing.Level)
		assert.Equal(t, int64(0), listing.Price)
	})
}
