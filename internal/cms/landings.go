package cms

import (
	"github.com/tidwall/gjson"

	"github.com/olegiv/sitecms-go/internal/model"
)

const (
	maxLandings       = 50
	maxLandingBodyLen = 20000
)

// Landings is the campaign landing page document.
type Landings struct {
	Pages []Landing `json:"pages"`
}

// Landing is a standalone campaign page. Body is sanitized HTML.
type Landing struct {
	Slug       string `json:"slug"`
	Title      string `json:"title"`
	Headline   string `json:"headline"`
	Body       string `json:"body"`
	CTALabel   string `json:"ctaLabel"`
	CTAHref    string `json:"ctaHref"`
	CampaignID int64  `json:"campaignId"`
	Published  bool   `json:"published"`
}

// LandingsKind stores campaign landings. Changes are audited, not versioned.
var LandingsKind = Kind[Landings]{
	ID:          "campaign_landings",
	Sections:    []string{"pages"},
	Sanitize:    SanitizeLandings,
	AuditAction: model.AuditLandingsUpdate,
}

// SanitizeLandings turns arbitrary JSON into a well-formed Landings document.
// Slugs come from the slug or the title and are unique within the document.
func SanitizeLandings(raw []byte) Landings {
	root := object(gjson.ParseBytes(raw))
	out := Landings{Pages: []Landing{}}

	taken := map[string]bool{}
	for _, v := range items(root.Get("pages")) {
		if len(out.Pages) == maxLandings {
			break
		}
		v = object(v)
		page := Landing{
			Title:     PlainText(v.Get("title"), 160),
			Headline:  PlainText(v.Get("headline"), 200),
			Body:      RichText(v.Get("body"), maxLandingBodyLen),
			CTALabel:  PlainText(v.Get("ctaLabel"), 40),
			CTAHref:   SafeURL(v.Get("ctaHref")),
			Published: boolean(v.Get("published"), false),
		}
		if id := v.Get("campaignId"); id.Type == gjson.Number && id.Int() > 0 {
			page.CampaignID = id.Int()
		}

		slug := PlainText(v.Get("slug"), 80)
		if slug == "" && page.Title == "" {
			continue
		}
		page.Slug = itemID(slug, page.Title, "landing", taken)
		out.Pages = append(out.Pages, page)
	}
	return out
}

// Published returns the published landing with the given slug.
func (l Landings) Published(slug string) (Landing, bool) {
	for _, p := range l.Pages {
		if p.Slug == slug && p.Published {
			return p, true
		}
	}
	return Landing{}, false
}
