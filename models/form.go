// models/form.go
package models

// Business types accepted by the first step.
const (
	BusinessTypeRetail        = "retail"
	BusinessTypeRestaurant    = "restaurant"
	BusinessTypeServices      = "services"
	BusinessTypeManufacturing = "manufacturing"
	BusinessTypeWholesale     = "wholesale"
	BusinessTypeHealthcare    = "healthcare"
	BusinessTypeEducation     = "education"
	BusinessTypeOther         = "other"
)

// Payment method tags accepted by the fourth step.
const (
	PaymentCash         = "cash"
	PaymentCard         = "card"
	PaymentUPI          = "upi"
	PaymentBankTransfer = "bank_transfer"
	PaymentWallet       = "wallet"
)

// BusinessTypes lists the enumerated business types.
var BusinessTypes = []string{
	BusinessTypeRetail,
	BusinessTypeRestaurant,
	BusinessTypeServices,
	BusinessTypeManufacturing,
	BusinessTypeWholesale,
	BusinessTypeHealthcare,
	BusinessTypeEducation,
	BusinessTypeOther,
}

// PaymentMethods lists the accepted payment method tags.
var PaymentMethods = []string{
	PaymentCash,
	PaymentCard,
	PaymentUPI,
	PaymentBankTransfer,
	PaymentWallet,
}

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64 `json:"lat" bson:"lat"`
	Lng float64 `json:"lng" bson:"lng"`
}

// MediaAsset is a media field of the form. Until it is uploaded it carries
// either raw bytes or a local preview data URI; afterwards URL and PublicID.
type MediaAsset struct {
	ID           string `json:"id,omitempty"`
	Name         string `json:"name,omitempty"`
	LocalPreview string `json:"localPreview,omitempty"` // data URI
	ContentType  string `json:"contentType,omitempty"`
	Size         int    `json:"size,omitempty"`
	URL          string `json:"url,omitempty"`
	PublicID     string `json:"publicId,omitempty"`
	Data         []byte `json:"-"` // multipart upload held in memory
}

// IsRemote reports whether the asset already points at durable storage.
func (m *MediaAsset) IsRemote() bool {
	return m != nil && m.URL != ""
}

// Clone returns a copy of m with its own data buffer. A nil asset stays nil.
func (m *MediaAsset) Clone() *MediaAsset {
	if m == nil {
		return nil
	}
	cp := *m
	if m.Data != nil {
		cp.Data = append([]byte(nil), m.Data...)
	}
	return &cp
}

// IsLocal reports whether the asset only exists in memory.
func (m *MediaAsset) IsLocal() bool {
	return m != nil && m.URL == "" && (len(m.Data) > 0 || m.LocalPreview != "")
}

// FormAggregate is the record accumulated across the five wizard steps.
type FormAggregate struct {
	// Step 1: business identity and profile media
	BusinessName string      `json:"businessName"`
	BusinessType string      `json:"businessType"`
	Description  string      `json:"description"`
	Categories   []string    `json:"categories"`
	FoundingYear *int        `json:"foundingYear,omitempty"`
	Logo         *MediaAsset `json:"logo,omitempty"`
	Cover        *MediaAsset `json:"cover,omitempty"`

	// Step 2: contact and location
	OwnerName   string       `json:"ownerName"`
	Phone       string       `json:"phone"` // 10 digits, country code implicit
	Email       string       `json:"email"`
	Address     string       `json:"address"`
	StateCode   string       `json:"stateCode"`
	StateName   string       `json:"stateName"`
	CityID      int          `json:"cityId,omitempty"`
	CityName    string       `json:"cityName"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`

	// Step 3: verification documents and media
	GovernmentID         *MediaAsset  `json:"governmentId,omitempty"`
	VerificationDocument *MediaAsset  `json:"verificationDocument,omitempty"`
	BusinessPhotos       []MediaAsset `json:"businessPhotos"`
	IntroVideo           *MediaAsset  `json:"introVideo,omitempty"`

	// Step 4: payments
	PaymentMethods     []string `json:"paymentMethods"`
	UPIID              string   `json:"upiId,omitempty"`
	BankDetails        string   `json:"bankDetails,omitempty"`
	UseManagedPayments bool     `json:"useManagedPayments"`

	// Step 5: consent
	TermsAccepted    bool `json:"termsAccepted"`
	DetailsConfirmed bool `json:"detailsConfirmed"`
}

// HasPaymentMethod reports whether tag is among the selected payment methods.
func (f *FormAggregate) HasPaymentMethod(tag string) bool {
	for _, m := range f.PaymentMethods {
		if m == tag {
			return true
		}
	}
	return false
}

// Clone returns a copy of f sharing no slices or pointers with it.
func (f FormAggregate) Clone() FormAggregate {
	cp := f
	cp.Categories = cloneStrings(f.Categories)
	cp.PaymentMethods = cloneStrings(f.PaymentMethods)
	if f.FoundingYear != nil {
		year := *f.FoundingYear
		cp.FoundingYear = &year
	}
	if f.Coordinates != nil {
		c := *f.Coordinates
		cp.Coordinates = &c
	}
	cp.Logo = f.Logo.Clone()
	cp.Cover = f.Cover.Clone()
	cp.GovernmentID = f.GovernmentID.Clone()
	cp.VerificationDocument = f.VerificationDocument.Clone()
	cp.IntroVideo = f.IntroVideo.Clone()
	if f.BusinessPhotos != nil {
		cp.BusinessPhotos = make([]MediaAsset, len(f.BusinessPhotos))
		for i := range f.BusinessPhotos {
			cp.BusinessPhotos[i] = *f.BusinessPhotos[i].Clone()
		}
	}
	return cp
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}

// FormPatch carries the fields a step submits. A nil field is left alone.
// The step tag names the only step allowed to write the field.
type FormPatch struct {
	BusinessName *string     `json:"businessName,omitempty" step:"1"`
	BusinessType *string     `json:"businessType,omitempty" step:"1"`
	Description  *string     `json:"description,omitempty" step:"1"`
	Categories   *[]string   `json:"categories,omitempty" step:"1"`
	FoundingYear *int        `json:"foundingYear,omitempty" step:"1"`
	Logo         *MediaAsset `json:"logo,omitempty" step:"1"`
	Cover        *MediaAsset `json:"cover,omitempty" step:"1"`

	OwnerName   *string      `json:"ownerName,omitempty" step:"2"`
	Phone       *string      `json:"phone,omitempty" step:"2"`
	Email       *string      `json:"email,omitempty" step:"2"`
	Address     *string      `json:"address,omitempty" step:"2"`
	StateCode   *string      `json:"stateCode,omitempty" step:"2"`
	StateName   *string      `json:"stateName,omitempty" step:"2"`
	CityID      *int         `json:"cityId,omitempty" step:"2"`
	CityName    *string      `json:"cityName,omitempty" step:"2"`
	Coordinates *Coordinates `json:"coordinates,omitempty" step:"2"`

	GovernmentID         *MediaAsset   `json:"governmentId,omitempty" step:"3"`
	VerificationDocument *MediaAsset   `json:"verificationDocument,omitempty" step:"3"`
	BusinessPhotos       *[]MediaAsset `json:"businessPhotos,omitempty" step:"3"`
	IntroVideo           *MediaAsset   `json:"introVideo,omitempty" step:"3"`

	PaymentMethods     *[]string `json:"paymentMethods,omitempty" step:"4"`
	UPIID              *string   `json:"upiId,omitempty" step:"4"`
	BankDetails        *string   `json:"bankDetails,omitempty" step:"4"`
	UseManagedPayments *bool     `json:"useManagedPayments,omitempty" step:"4"`

	TermsAccepted    *bool `json:"termsAccepted,omitempty" step:"5"`
	DetailsConfirmed *bool `json:"detailsConfirmed,omitempty" step:"5"`
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool { return &b }

// IntPtr returns a pointer to i.
func IntPtr(i int) *int { return &i }
