// models/asset.go
package models

// Upload categories, used as the folder segment after the business id.
const (
	CategoryProfile      = "Profile"
	CategoryVerification = "Verification"
)

// Asset names used as object names and result keys.
const (
	AssetLogo                 = "logo"
	AssetCover                = "cover"
	AssetGovernmentID         = "governmentId"
	AssetVerificationDocument = "verificationDocument"
	AssetIntroVideo           = "introVideo"
	AssetIntroVideoThumbnail  = "introVideoThumbnail"
	AssetBusinessPhotoPrefix  = "businessPhoto_"
)

// AssetReference is a durable pointer to an uploaded binary.
// Once URL is set the reference is treated as immutable.
type AssetReference struct {
	URL          string `json:"url" bson:"url"`
	PublicID     string `json:"publicId" bson:"publicId"`
	OriginalName string `json:"originalName,omitempty" bson:"originalName,omitempty"`
	Folder       string `json:"folder,omitempty" bson:"folder,omitempty"`
}

// AsMedia turns the reference back into a form media field.
func (r AssetReference) AsMedia(id string) *MediaAsset {
	return &MediaAsset{
		ID:       id,
		Name:     r.OriginalName,
		URL:      r.URL,
		PublicID: r.PublicID,
	}
}

// AssetSource is the input to one upload. Exactly one representation is
// used, checked in this order: remote reference, raw bytes, data URI,
// preview data URI.
type AssetSource struct {
	URL            string
	PublicID       string
	Data           []byte
	Filename       string
	DataURI        string
	PreviewDataURI string
}

// IsEmpty reports whether the source carries nothing to upload.
func (s AssetSource) IsEmpty() bool {
	return s.URL == "" && len(s.Data) == 0 && s.DataURI == "" && s.PreviewDataURI == ""
}

// Source returns the upload source for a media field.
func (m *MediaAsset) Source() AssetSource {
	if m == nil {
		return AssetSource{}
	}
	return AssetSource{
		URL:            m.URL,
		PublicID:       m.PublicID,
		Data:           m.Data,
		Filename:       m.Name,
		PreviewDataURI: m.LocalPreview,
	}
}
