package dispatcher

import (
	"encoding/json"
	"fmt"
	"strings"

	"content-studio-be/pkg/workflow"
)

type AttachmentKind string

const (
	KindLogo             AttachmentKind = "logo"
	KindReferenceImages  AttachmentKind = "reference_images"
	KindCompanyOverview  AttachmentKind = "company_overview"
	KindScrapedBrandInfo AttachmentKind = "scraped_brand_info"
)

// Attachment is one of the variants below. Switches over it list every
// variant; UnknownAttachment stands for types this server does not know.
type Attachment interface {
	Kind() AttachmentKind
}

type LogoColors struct {
	Dominant string   `json:"dominant"`
	Palette  []string `json:"palette"`
}

type LogoAttachment struct {
	Path     string     `json:"path"`
	FullPath string     `json:"full_path,omitempty"`
	Colors   LogoColors `json:"colors"`
}

type ReferenceImagesAttachment struct {
	Paths []string `json:"paths"`
}

type CompanyOverviewAttachment struct {
	CompanyName string `json:"company_name"`
	Industry    string `json:"industry,omitempty"`
	Tone        string `json:"tone,omitempty"`
	Overview    string `json:"overview,omitempty"`
}

type ScrapedBrandAttachment struct {
	Source  string   `json:"source,omitempty"`
	Handle  string   `json:"handle,omitempty"`
	Summary string   `json:"summary,omitempty"`
	Colors  []string `json:"colors,omitempty"`
}

type UnknownAttachment struct {
	Type string
}

func (LogoAttachment) Kind() AttachmentKind            { return KindLogo }
func (ReferenceImagesAttachment) Kind() AttachmentKind { return KindReferenceImages }
func (CompanyOverviewAttachment) Kind() AttachmentKind { return KindCompanyOverview }
func (ScrapedBrandAttachment) Kind() AttachmentKind    { return KindScrapedBrandInfo }
func (a UnknownAttachment) Kind() AttachmentKind       { return AttachmentKind(a.Type) }

// AttachmentError reports a malformed descriptor of a known type
type AttachmentError struct {
	Kind   AttachmentKind
	Reason string
}

func (e *AttachmentError) Error() string {
	return fmt.Sprintf("invalid %s attachment: %s", e.Kind, e.Reason)
}

// DecodeAttachment parses one `{"type": ..., ...}` descriptor
func DecodeAttachment(raw json.RawMessage) (Attachment, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, &AttachmentError{Kind: "unknown", Reason: "not a JSON object"}
	}

	switch AttachmentKind(head.Type) {
	case KindLogo:
		var a LogoAttachment
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, &AttachmentError{Kind: KindLogo, Reason: err.Error()}
		}
		if strings.TrimSpace(a.Path) == "" {
			return nil, &AttachmentError{Kind: KindLogo, Reason: "path is required"}
		}
		return a, nil
	case KindReferenceImages:
		var a ReferenceImagesAttachment
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, &AttachmentError{Kind: KindReferenceImages, Reason: err.Error()}
		}
		if len(a.Paths) == 0 {
			return nil, &AttachmentError{Kind: KindReferenceImages, Reason: "paths are required"}
		}
		return a, nil
	case KindCompanyOverview:
		var a CompanyOverviewAttachment
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, &AttachmentError{Kind: KindCompanyOverview, Reason: err.Error()}
		}
		if a.CompanyName == "" && a.Overview == "" {
			return nil, &AttachmentError{Kind: KindCompanyOverview, Reason: "company_name or overview is required"}
		}
		return a, nil
	case KindScrapedBrandInfo:
		var a ScrapedBrandAttachment
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, &AttachmentError{Kind: KindScrapedBrandInfo, Reason: err.Error()}
		}
		return a, nil
	default:
		return UnknownAttachment{Type: head.Type}, nil
	}
}

// DecodeAttachments decodes every descriptor and fails on the first malformed one
func DecodeAttachments(raws []json.RawMessage) ([]Attachment, error) {
	out := make([]Attachment, 0, len(raws))
	for _, raw := range raws {
		a, err := DecodeAttachment(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// HasBrandInfo reports whether any attachment carries brand data
func HasBrandInfo(attachments []Attachment) bool {
	for _, a := range attachments {
		if _, unknown := a.(UnknownAttachment); !unknown {
			return true
		}
	}
	return false
}

// applyAttachments merges brand data into a copy of brand. Reference images
// past the cap reject the whole set.
func applyAttachments(brand *workflow.Brand, attachments []Attachment) (*workflow.Brand, error) {
	out := brand.Clone()
	if out == nil {
		out = &workflow.Brand{}
	}
	for _, a := range attachments {
		switch a := a.(type) {
		case LogoAttachment:
			out.Logo = &workflow.Logo{
				Path:     a.Path,
				Dominant: a.Colors.Dominant,
				Palette:  append([]string(nil), a.Colors.Palette...),
			}
		case ReferenceImagesAttachment:
			if err := out.AddReferenceImages(a.Paths...); err != nil {
				return nil, err
			}
		case CompanyOverviewAttachment:
			if a.CompanyName != "" {
				out.CompanyName = a.CompanyName
			}
			if a.Industry != "" {
				out.Industry = a.Industry
			}
			if a.Tone != "" {
				out.Tone = a.Tone
			}
			if a.Overview != "" {
				out.Overview = a.Overview
			}
		case ScrapedBrandAttachment:
			out.Scraped = &workflow.ScrapedBrand{
				Source:  a.Source,
				Handle:  a.Handle,
				Summary: a.Summary,
				Colors:  append([]string(nil), a.Colors...),
			}
		case UnknownAttachment:
			// ignored
		}
	}
	return out, nil
}
