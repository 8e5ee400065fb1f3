package dispatcher

import (
	"encoding/json"
	"testing"

	"content-studio-be/pkg/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeAttachment(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Attachment
		wantErr bool
	}{
		{
			name: "logo",
			raw:  `{"type":"logo","path":"uploads/logo.png","colors":{"dominant":"#3b2f2f","palette":["#f5e6d3"]}}`,
			want: LogoAttachment{Path: "uploads/logo.png", Colors: LogoColors{Dominant: "#3b2f2f", Palette: []string{"#f5e6d3"}}},
		},
		{
			name: "reference images",
			raw:  `{"type":"reference_images","paths":["a.png","b.png"]}`,
			want: ReferenceImagesAttachment{Paths: []string{"a.png", "b.png"}},
		},
		{
			name: "company overview",
			raw:  `{"type":"company_overview","company_name":"Kopi Senja","industry":"coffee"}`,
			want: CompanyOverviewAttachment{CompanyName: "Kopi Senja", Industry: "coffee"},
		},
		{
			name: "unknown type is kept",
			raw:  `{"type":"spreadsheet","path":"x.csv"}`,
			want: UnknownAttachment{Type: "spreadsheet"},
		},
		{name: "logo without path", raw: `{"type":"logo"}`, wantErr: true},
		{name: "empty reference set", raw: `{"type":"reference_images","paths":[]}`, wantErr: true},
		{name: "overview without content", raw: `{"type":"company_overview","tone":"warm"}`, wantErr: true},
		{name: "not an object", raw: `"logo"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeAttachment(json.RawMessage(tt.raw))
			if tt.wantErr {
				var attErr *AttachmentError
				assert.ErrorAs(t, err, &attErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApplyAttachmentsMergesIntoCopy(t *testing.T) {
	original := &workflow.Brand{CompanyName: "Kopi Senja", Tone: "warm"}

	got, err := applyAttachments(original, []Attachment{
		LogoAttachment{Path: "logo.png", Colors: LogoColors{Dominant: "#111111"}},
		CompanyOverviewAttachment{Industry: "coffee"},
		UnknownAttachment{Type: "pdf"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Kopi Senja", got.CompanyName)
	assert.Equal(t, "warm", got.Tone)
	assert.Equal(t, "coffee", got.Industry)
	assert.Equal(t, "logo.png", got.Logo.Path)
	assert.Nil(t, original.Logo)
	assert.Empty(t, original.Industry)
}

func TestApplyAttachmentsRejectsReferenceOverflow(t *testing.T) {
	brand := &workflow.Brand{ReferenceImages: []string{"1.png", "2.png", "3.png", "4.png"}}

	_, err := applyAttachments(brand, []Attachment{ReferenceImagesAttachment{Paths: []string{"5.png", "6.png"}}})
	assert.ErrorIs(t, err, workflow.ErrTooManyReferenceImages)
	assert.Len(t, brand.ReferenceImages, 4)
}
