package workflow

// MaxReferenceImages caps how many reference images a brand may carry
const MaxReferenceImages = 5

// AssetKind distinguishes generated media
type AssetKind string

const (
	AssetImage AssetKind = "image"
	AssetVideo AssetKind = "video"
)

type Logo struct {
	Path     string   `json:"path"`
	Dominant string   `json:"dominant,omitempty"`
	Palette  []string `json:"palette,omitempty"`
}

// ScrapedBrand holds metadata pulled from a public brand profile
type ScrapedBrand struct {
	Source  string   `json:"source,omitempty"`
	Handle  string   `json:"handle,omitempty"`
	Summary string   `json:"summary,omitempty"`
	Colors  []string `json:"colors,omitempty"`
}

// Brand is the brand configuration captured during setup
type Brand struct {
	CompanyName     string        `json:"company_name,omitempty"`
	Industry        string        `json:"industry,omitempty"`
	Tone            string        `json:"tone,omitempty"`
	Overview        string        `json:"overview,omitempty"`
	Logo            *Logo         `json:"logo,omitempty"`
	ReferenceImages []string      `json:"reference_images,omitempty"`
	Scraped         *ScrapedBrand `json:"scraped,omitempty"`
}

// Configured reports whether any brand information has been captured
func (b *Brand) Configured() bool {
	if b == nil {
		return false
	}
	return b.CompanyName != "" || b.Overview != "" || b.Logo != nil || len(b.ReferenceImages) > 0 || b.Scraped != nil
}

// AddReferenceImages appends paths, refusing to go past MaxReferenceImages.
// Nothing is appended when the cap would be exceeded.
func (b *Brand) AddReferenceImages(paths ...string) error {
	if len(b.ReferenceImages)+len(paths) > MaxReferenceImages {
		return ErrTooManyReferenceImages
	}
	b.ReferenceImages = append(b.ReferenceImages, paths...)
	return nil
}

// Colors returns the brand palette, logo colours first
func (b *Brand) Colors() []string {
	if b == nil {
		return nil
	}
	var colors []string
	if b.Logo != nil {
		if b.Logo.Dominant != "" {
			colors = append(colors, b.Logo.Dominant)
		}
		colors = append(colors, b.Logo.Palette...)
	}
	if b.Scraped != nil {
		colors = append(colors, b.Scraped.Colors...)
	}
	return colors
}

func (b *Brand) Clone() *Brand {
	if b == nil {
		return nil
	}
	out := *b
	if b.Logo != nil {
		logo := *b.Logo
		logo.Palette = cloneStrings(b.Logo.Palette)
		out.Logo = &logo
	}
	if b.Scraped != nil {
		scraped := *b.Scraped
		scraped.Colors = cloneStrings(b.Scraped.Colors)
		out.Scraped = &scraped
	}
	out.ReferenceImages = cloneStrings(b.ReferenceImages)
	return &out
}

// AssetRef points at a generated asset by id and path
type AssetRef struct {
	ID   string    `json:"id"`
	Path string    `json:"path"`
	Kind AssetKind `json:"kind"`
}

type PlannedPost struct {
	Day  string `json:"day"`
	Idea string `json:"idea"`
}

// WeekPlan is one planned week of a campaign
type WeekPlan struct {
	Week  int           `json:"week"`
	Theme string        `json:"theme,omitempty"`
	Posts []PlannedPost `json:"posts"`
}

// Campaign tracks multi-week planning progress. CurrentWeek is the next week to plan.
type Campaign struct {
	Month        string     `json:"month,omitempty"`
	PostsPerWeek int        `json:"posts_per_week"`
	TotalWeeks   int        `json:"total_weeks"`
	CurrentWeek  int        `json:"current_week"`
	Weeks        []WeekPlan `json:"weeks,omitempty"`
}

// NewCampaign returns a campaign skeleton starting at week one
func NewCampaign(month string, postsPerWeek, totalWeeks int) *Campaign {
	if postsPerWeek <= 0 {
		postsPerWeek = 2
	}
	if totalWeeks <= 0 {
		totalWeeks = 4
	}
	return &Campaign{Month: month, PostsPerWeek: postsPerWeek, TotalWeeks: totalWeeks, CurrentWeek: 1}
}

func (c *Campaign) Complete() bool {
	return c != nil && c.CurrentWeek > c.TotalWeeks
}

// PostsPlanned counts planned posts across all weeks
func (c *Campaign) PostsPlanned() int {
	if c == nil {
		return 0
	}
	total := 0
	for _, w := range c.Weeks {
		total += len(w.Posts)
	}
	return total
}

// WithWeek returns a copy with the plan recorded and CurrentWeek advanced past it
func (c *Campaign) WithWeek(plan WeekPlan) *Campaign {
	out := c.Clone()
	out.Weeks = append(out.Weeks, plan)
	if plan.Week >= out.CurrentWeek {
		out.CurrentWeek = plan.Week + 1
	}
	return out
}

func (c *Campaign) Clone() *Campaign {
	if c == nil {
		return nil
	}
	out := *c
	if c.Weeks != nil {
		out.Weeks = make([]WeekPlan, len(c.Weeks))
		for i, w := range c.Weeks {
			w.Posts = append([]PlannedPost(nil), w.Posts...)
			out.Weeks[i] = w
		}
	}
	return &out
}

// Context is the typed data carried alongside the stage
type Context struct {
	Brand            *Brand    `json:"brand,omitempty"`
	Prompt           string    `json:"prompt,omitempty"`
	Ideas            []string  `json:"ideas,omitempty"`
	SelectedIdea     string    `json:"selected_idea,omitempty"`
	LastAsset        *AssetRef `json:"last_asset,omitempty"`
	LastVideo        *AssetRef `json:"last_video,omitempty"`
	Caption          string    `json:"caption,omitempty"`
	Hashtags         []string  `json:"hashtags,omitempty"`
	Campaign         *Campaign `json:"campaign,omitempty"`
	InterruptedStage Stage     `json:"interrupted_stage,omitempty"`
}

func (c Context) Clone() Context {
	out := c
	out.Brand = c.Brand.Clone()
	out.Ideas = cloneStrings(c.Ideas)
	out.Hashtags = cloneStrings(c.Hashtags)
	out.Campaign = c.Campaign.Clone()
	if c.LastAsset != nil {
		ref := *c.LastAsset
		out.LastAsset = &ref
	}
	if c.LastVideo != nil {
		ref := *c.LastVideo
		out.LastVideo = &ref
	}
	return out
}

// Patch lists context fields to overwrite. Nil fields are left untouched.
type Patch struct {
	Brand        *Brand
	Prompt       *string
	Ideas        []string
	SelectedIdea *string
	LastAsset    *AssetRef
	LastVideo    *AssetRef
	Caption      *string
	Hashtags     []string
	Campaign     *Campaign
}

// Apply returns a new context with the patch applied; c is not modified
func (p Patch) Apply(c Context) Context {
	out := c.Clone()
	if p.Brand != nil {
		out.Brand = p.Brand.Clone()
	}
	if p.Prompt != nil {
		out.Prompt = *p.Prompt
	}
	if p.Ideas != nil {
		out.Ideas = cloneStrings(p.Ideas)
	}
	if p.SelectedIdea != nil {
		out.SelectedIdea = *p.SelectedIdea
	}
	if p.LastAsset != nil {
		ref := *p.LastAsset
		out.LastAsset = &ref
	}
	if p.LastVideo != nil {
		ref := *p.LastVideo
		out.LastVideo = &ref
	}
	if p.Caption != nil {
		out.Caption = *p.Caption
	}
	if p.Hashtags != nil {
		out.Hashtags = cloneStrings(p.Hashtags)
	}
	if p.Campaign != nil {
		out.Campaign = p.Campaign.Clone()
	}
	return out
}

// String returns a pointer to v, for building patches
func String(v string) *string {
	return &v
}

// State is the persisted workflow position of a session
type State struct {
	Stage   Stage   `json:"stage"`
	Context Context `json:"context"`
}

// NewState returns the initial state of a fresh session
func NewState() State {
	return State{Stage: StageBrandSetup}
}

func (s State) Clone() State {
	return State{Stage: s.Stage, Context: s.Context.Clone()}
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
