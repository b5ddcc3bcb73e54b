// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cms holds the site content document, its per-section sanitizers
// and the versioned snapshot store the admin console edits through.
package cms

import (
	"encoding/json"

	"github.com/tidwall/gjson"

	"github.com/olegiv/sitecms-go/internal/util"
)

// Section names of the main document.
const (
	SectionHero     = "hero"
	SectionServices = "services"
	SectionProducts = "products"
	SectionSite     = "site"
	SectionDesign   = "design"
	SectionHomePage = "homePage"
)

// Sections lists the versioned sections of the main document in display order.
var Sections = []string{SectionHero, SectionServices, SectionProducts, SectionSite, SectionDesign, SectionHomePage}

// Home page blocks that sectionOrder may arrange.
var homeBlocks = []string{"hero", "services", "products", "contact"}

// List and field limits.
const (
	maxHighlights   = 6
	maxItems        = 24
	maxFeatures     = 8
	maxSocialLinks  = 10
	maxRichProduct  = 4000
	maxDesignRadius = 24
)

// Document is the main site content document.
type Document struct {
	Hero     Hero     `json:"hero"`
	Services Services `json:"services"`
	Products Products `json:"products"`
	Site     Site     `json:"site"`
	Design   Design   `json:"design"`
	HomePage HomePage `json:"homePage"`
}

// Link is a labelled call to action.
type Link struct {
	Label string `json:"label"`
	Href  string `json:"href"`
}

// Hero is the landing banner.
type Hero struct {
	Eyebrow      string   `json:"eyebrow"`
	Title        string   `json:"title"`
	Subtitle     string   `json:"subtitle"`
	ImageURL     string   `json:"imageUrl"`
	PrimaryCTA   Link     `json:"primaryCta"`
	SecondaryCTA Link     `json:"secondaryCta"`
	Highlights   []string `json:"highlights"`
}

// Services lists what the business offers.
type Services struct {
	Heading string        `json:"heading"`
	Intro   string        `json:"intro"`
	Items   []ServiceItem `json:"items"`
}

// ServiceItem is one offered service.
type ServiceItem struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Summary  string   `json:"summary"`
	Icon     string   `json:"icon"`
	Features []string `json:"features"`
}

// Products lists sellable products.
type Products struct {
	Heading string        `json:"heading"`
	Intro   string        `json:"intro"`
	Items   []ProductItem `json:"items"`
}

// ProductItem is one product card. Description is sanitized HTML.
type ProductItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Tagline     string `json:"tagline"`
	PriceLabel  string `json:"priceLabel"`
	Description string `json:"description"`
	URL         string `json:"url"`
	ImageURL    string `json:"imageUrl"`
	Featured    bool   `json:"featured"`
}

// Site holds business identity and contact details.
type Site struct {
	Name         string       `json:"name"`
	Tagline      string       `json:"tagline"`
	ContactEmail string       `json:"contactEmail"`
	Phone        string       `json:"phone"`
	Address      string       `json:"address"`
	Social       []SocialLink `json:"social"`
	FooterNote   string       `json:"footerNote"`
}

// SocialLink points at an external profile.
type SocialLink struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Design holds theme tokens consumed by the front end.
type Design struct {
	PrimaryColor string `json:"primaryColor"`
	AccentColor  string `json:"accentColor"`
	FontFamily   string `json:"fontFamily"`
	Theme        string `json:"theme"`
	Radius       int    `json:"radius"`
}

// HomePage controls home page composition.
type HomePage struct {
	SectionOrder   []string `json:"sectionOrder"`
	ShowContact    bool     `json:"showContact"`
	ContactHeading string   `json:"contactHeading"`
	ContactIntro   string   `json:"contactIntro"`
	SEO            SEO      `json:"seo"`
}

// SEO holds the document title and meta description.
type SEO struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// DefaultDocument returns the content served before anything is edited.
func DefaultDocument() Document {
	return Document{
		Hero: Hero{
			Eyebrow:      "Welcome",
			Title:        "Build something people love",
			Subtitle:     "We design, build and grow digital products for ambitious teams.",
			PrimaryCTA:   Link{Label: "Get in touch", Href: "#contact"},
			SecondaryCTA: Link{Label: "Our services", Href: "#services"},
			Highlights:   []string{},
		},
		Services: Services{
			Heading: "Services",
			Intro:   "",
			Items:   []ServiceItem{},
		},
		Products: Products{
			Heading: "Products",
			Intro:   "",
			Items:   []ProductItem{},
		},
		Site: Site{
			Name:   "Our Company",
			Social: []SocialLink{},
		},
		Design: Design{
			PrimaryColor: "#2563eb",
			AccentColor:  "#f59e0b",
			FontFamily:   "inter",
			Theme:        "light",
			Radius:       8,
		},
		HomePage: HomePage{
			SectionOrder:   append([]string{}, homeBlocks...),
			ShowContact:    true,
			ContactHeading: "Contact us",
		},
	}
}

// SanitizeDocument turns arbitrary JSON into a well-formed Document. Unknown
// fields are dropped and missing ones take their defaults. It never fails.
func SanitizeDocument(raw []byte) Document {
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		root = gjson.Result{}
	}
	def := DefaultDocument()
	return Document{
		Hero:     sanitizeHero(root.Get(SectionHero), def.Hero),
		Services: sanitizeServices(root.Get(SectionServices), def.Services),
		Products: sanitizeProducts(root.Get(SectionProducts), def.Products),
		Site:     sanitizeSite(root.Get(SectionSite), def.Site),
		Design:   sanitizeDesign(root.Get(SectionDesign), def.Design),
		HomePage: sanitizeHomePage(root.Get(SectionHomePage), def.HomePage),
	}
}

// SanitizeSection sanitizes the JSON of a single named section. It reports
// false for unknown section names.
func SanitizeSection(name string, raw []byte) (any, bool) {
	v := gjson.ParseBytes(raw)
	def := DefaultDocument()
	switch name {
	case SectionHero:
		return sanitizeHero(v, def.Hero), true
	case SectionServices:
		return sanitizeServices(v, def.Services), true
	case SectionProducts:
		return sanitizeProducts(v, def.Products), true
	case SectionSite:
		return sanitizeSite(v, def.Site), true
	case SectionDesign:
		return sanitizeDesign(v, def.Design), true
	case SectionHomePage:
		return sanitizeHomePage(v, def.HomePage), true
	default:
		return nil, false
	}
}

// DefaultSection returns the default JSON of a named section.
func DefaultSection(name string) (json.RawMessage, bool) {
	doc, err := json.Marshal(DefaultDocument())
	if err != nil {
		return nil, false
	}
	v := gjson.GetBytes(doc, name)
	if !v.Exists() {
		return nil, false
	}
	return json.RawMessage(v.Raw), true
}

// object returns v when it is a JSON object and an empty result otherwise,
// so every field lookup falls back to its default.
func object(v gjson.Result) gjson.Result {
	if v.IsObject() {
		return v
	}
	return gjson.Result{}
}

func sanitizeLink(v gjson.Result, def Link) Link {
	if !v.Exists() {
		return def
	}
	v = object(v)
	return Link{
		Label: textField(v, "label", "", 40),
		Href:  urlField(v, "href", ""),
	}
}

func sanitizeHero(v gjson.Result, def Hero) Hero {
	v = object(v)
	return Hero{
		Eyebrow:      textField(v, "eyebrow", def.Eyebrow, 80),
		Title:        textField(v, "title", def.Title, 160),
		Subtitle:     textField(v, "subtitle", def.Subtitle, 400),
		ImageURL:     urlField(v, "imageUrl", def.ImageURL),
		PrimaryCTA:   sanitizeLink(v.Get("primaryCta"), def.PrimaryCTA),
		SecondaryCTA: sanitizeLink(v.Get("secondaryCta"), def.SecondaryCTA),
		Highlights:   textList(v.Get("highlights"), def.Highlights, maxHighlights, 80),
	}
}

// itemID derives a list-unique slug from an explicit id or a fallback title.
func itemID(explicit, title, fallback string, taken map[string]bool) string {
	base := util.Slugify(explicit)
	if base == "" {
		base = util.Slugify(title)
	}
	if base == "" {
		base = fallback
	}
	return util.UniqueSlug(base, taken)
}

func sanitizeServices(v gjson.Result, def Services) Services {
	v = object(v)
	out := Services{
		Heading: textField(v, "heading", def.Heading, 120),
		Intro:   textField(v, "intro", def.Intro, 600),
		Items:   []ServiceItem{},
	}

	list := v.Get("items")
	if !list.Exists() {
		out.Items = append(out.Items, def.Items...)
		return out
	}

	taken := map[string]bool{}
	for _, raw := range items(list) {
		if len(out.Items) == maxItems {
			break
		}
		raw = object(raw)
		item := ServiceItem{
			Title:    PlainText(raw.Get("title"), 120),
			Summary:  PlainText(raw.Get("summary"), 400),
			Icon:     PlainText(raw.Get("icon"), 40),
			Features: textList(raw.Get("features"), nil, maxFeatures, 120),
		}
		if item.Title == "" && item.Summary == "" {
			continue
		}
		item.ID = itemID(PlainText(raw.Get("id"), 80), item.Title, "service", taken)
		out.Items = append(out.Items, item)
	}
	return out
}

func sanitizeProducts(v gjson.Result, def Products) Products {
	v = object(v)
	out := Products{
		Heading: textField(v, "heading", def.Heading, 120),
		Intro:   textField(v, "intro", def.Intro, 600),
		Items:   []ProductItem{},
	}

	list := v.Get("items")
	if !list.Exists() {
		out.Items = append(out.Items, def.Items...)
		return out
	}

	taken := map[string]bool{}
	for _, raw := range items(list) {
		if len(out.Items) == maxItems {
			break
		}
		raw = object(raw)
		item := ProductItem{
			Name:        PlainText(raw.Get("name"), 120),
			Tagline:     PlainText(raw.Get("tagline"), 200),
			PriceLabel:  PlainText(raw.Get("priceLabel"), 60),
			Description: RichText(raw.Get("description"), maxRichProduct),
			URL:         SafeURL(raw.Get("url")),
			ImageURL:    SafeURL(raw.Get("imageUrl")),
			Featured:    boolean(raw.Get("featured"), false),
		}
		if item.Name == "" {
			continue
		}
		item.ID = itemID(PlainText(raw.Get("id"), 80), item.Name, "product", taken)
		out.Items = append(out.Items, item)
	}
	return out
}

func sanitizeSite(v gjson.Result, def Site) Site {
	v = object(v)
	out := Site{
		Name:       textField(v, "name", def.Name, 80),
		Tagline:    textField(v, "tagline", def.Tagline, 160),
		Phone:      textField(v, "phone", def.Phone, 40),
		Address:    textField(v, "address", def.Address, 300),
		FooterNote: textField(v, "footerNote", def.FooterNote, 300),
		Social:     []SocialLink{},
	}

	if email := v.Get("contactEmail"); email.Exists() {
		out.ContactEmail = Email(email)
	} else {
		out.ContactEmail = def.ContactEmail
	}

	social := v.Get("social")
	if !social.Exists() {
		out.Social = append(out.Social, def.Social...)
		return out
	}
	for _, raw := range items(social) {
		if len(out.Social) == maxSocialLinks {
			break
		}
		raw = object(raw)
		link := SocialLink{
			Label: PlainText(raw.Get("label"), 40),
			URL:   SafeURL(raw.Get("url")),
		}
		if link.URL == "" {
			continue
		}
		out.Social = append(out.Social, link)
	}
	return out
}

func sanitizeDesign(v gjson.Result, def Design) Design {
	v = object(v)
	return Design{
		PrimaryColor: color(v.Get("primaryColor"), def.PrimaryColor),
		AccentColor:  color(v.Get("accentColor"), def.AccentColor),
		FontFamily:   enum(v.Get("fontFamily"), def.FontFamily, "inter", "system", "serif", "mono"),
		Theme:        enum(v.Get("theme"), def.Theme, "light", "dark", "auto"),
		Radius:       clampInt(v.Get("radius"), def.Radius, 0, maxDesignRadius),
	}
}

func sanitizeHomePage(v gjson.Result, def HomePage) HomePage {
	v = object(v)
	out := HomePage{
		ShowContact:    boolean(v.Get("showContact"), def.ShowContact),
		ContactHeading: textField(v, "contactHeading", def.ContactHeading, 120),
		ContactIntro:   textField(v, "contactIntro", def.ContactIntro, 400),
	}

	seen := map[string]bool{}
	order := []string{}
	for _, raw := range items(v.Get("sectionOrder")) {
		name := enum(raw, "", homeBlocks...)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		order = append(order, name)
	}
	if len(order) == 0 {
		order = append(order, def.SectionOrder...)
	}
	out.SectionOrder = order

	seo := object(v.Get("seo"))
	out.SEO = SEO{
		Title:       textField(seo, "title", def.SEO.Title, 70),
		Description: textField(seo, "description", def.SEO.Description, 160),
	}
	return out
}
