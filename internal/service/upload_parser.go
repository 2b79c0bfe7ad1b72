package service

import (
	"strconv"
	"strings"

	"gamemarket/internal/model"
)

// ============================================================================
// 批量上架文本解析
// ============================================================================
//
// 一行一个账号，字段用 '|' 分隔，例如：
//
//	warrior01:pass123 | lv=30 | server=Asia | skins=12 | price=5000 | 稀有皮肤多
//
// 解析规则是一张有序规则表：每个 token 从上往下过规则，第一条认领它的规则
// 负责写字段；没人认领的 token 原样收进 Extra。新增字段只需插一条规则，
// 不用改解析流程

// fieldRule 单条字段规则。match 判断是否认领该 token，apply 负责写入
type fieldRule struct {
	name  string
	match func(token string) bool
	apply func(token string, listing *model.Listing)
}

// keyValueRule 识别 key=value 形式的 token，key 支持别名
func keyValueRule(name string, aliases []string, set func(value string, listing *model.Listing)) fieldRule {
	matchKey := func(token string) (string, bool) {
		k, v, found := strings.Cut(token, "=")
		if !found {
			return "", false
		}
		k = strings.ToLower(strings.TrimSpace(k))
		for _, alias := range aliases {
			if k == alias {
				return strings.TrimSpace(v), true
			}
		}
		return "", false
	}
	return fieldRule{
		name: name,
		match: func(token string) bool {
			_, ok := matchKey(token)
			return ok
		},
		apply: func(token string, listing *model.Listing) {
			if v, ok := matchKey(token); ok {
				set(v, listing)
			}
		},
	}
}

var listingFieldRules = []fieldRule{
	{
		// 账号凭据：形如 username:password，必须排第一，
		// 否则密码里的 '=' 会被后面的规则误认
		name: "credentials",
		match: func(token string) bool {
			return strings.Contains(token, ":") && !strings.Contains(token, "=")
		},
		apply: func(token string, listing *model.Listing) {
			username, password, _ := strings.Cut(token, ":")
			listing.Username = strings.TrimSpace(username)
			listing.Password = strings.TrimSpace(password)
		},
	},
	keyValueRule("level", []string{"level", "lv"}, func(v string, listing *model.Listing) {
		if n, err := strconv.Atoi(v); err == nil {
			listing.Level = n
		}
	}),
	keyValueRule("server", []string{"server", "sv"}, func(v string, listing *model.Listing) {
		listing.Server = v
	}),
	keyValueRule("skins", []string{"skins", "skin"}, func(v string, listing *model.Listing) {
		if n, err := strconv.Atoi(v); err == nil {
			listing.Skins = n
		}
	}),
	keyValueRule("price", []string{"price"}, func(v string, listing *model.Listing) {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			listing.Price = n
		}
	}),
	// 行内分类覆盖任务级分类
	keyValueRule("category", []string{"category", "cat", "game"}, func(v string, listing *model.Listing) {
		listing.Category = v
	}),
}

// ParseListingLine 解析一行上架文本
// 返回 nil 表示该行无凭据，应跳过
func ParseListingLine(line, category string) *model.Listing {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}

	listing := &model.Listing{
		Category: category,
		SaleType: model.SaleTypeFixed,
		Status:   model.ListingStatusAvailable,
	}
	var extras []string

	for _, raw := range strings.Split(line, "|") {
		token := strings.TrimSpace(raw)
		if token == "" {
			continue
		}
		claimed := false
		for _, rule := range listingFieldRules {
			if rule.match(token) {
				rule.apply(token, listing)
				claimed = true
				break
			}
		}
		if !claimed {
			extras = append(extras, token)
		}
	}

	// 没有凭据的行不构成商品
	if listing.Username == "" || listing.Password == "" {
		return nil
	}
	listing.Extra = strings.Join(extras, " | ")
	return listing
}
