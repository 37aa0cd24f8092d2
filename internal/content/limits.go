package content

// Rune limits for CMS fields.
const (
	MaxTitle          = 120
	MaxSlug           = 140
	MaxSummary        = 300
	MaxCategory       = 60
	MaxQuestion       = 300
	MaxAnswer         = 5000
	MaxNoticeTitle    = 200
	MaxLongBody       = 20000
	MaxMarquee        = 300
	MaxAltText        = 200
	MaxArticleSummary = 500
	MaxArticleBody    = 100000
	MaxURL            = 2048
)
