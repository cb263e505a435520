// models/business.go
package models

// Collection names in the document store.
const (
	BusinessesCollection    = "Businesses"
	BusinessUsersCollection = "BusinessUsers"
)

const (
	BusinessStatusActive = "active"
	AccountTypeBusiness  = "business"
)

// Business is the consolidated record persisted on submission, keyed by email.
// It only ever holds durable asset references.
type Business struct {
	BusinessID   string   `json:"businessId" bson:"businessId"`
	BusinessName string   `json:"businessName" bson:"businessName"`
	BusinessType string   `json:"businessType" bson:"businessType"`
	Description  string   `json:"description" bson:"description"`
	Categories   []string `json:"categories" bson:"categories"`
	FoundingYear *int     `json:"foundingYear,omitempty" bson:"foundingYear,omitempty"`

	Logo  *AssetReference `json:"logo,omitempty" bson:"logo,omitempty"`
	Cover *AssetReference `json:"cover,omitempty" bson:"cover,omitempty"`

	OwnerName   string       `json:"ownerName" bson:"ownerName"`
	Phone       string       `json:"phone" bson:"phone"`
	Email       string       `json:"email" bson:"email"`
	Address     string       `json:"address" bson:"address"`
	StateCode   string       `json:"stateCode" bson:"stateCode"`
	StateName   string       `json:"stateName" bson:"stateName"`
	CityID      int          `json:"cityId" bson:"cityId"`
	CityName    string       `json:"cityName" bson:"cityName"`
	Coordinates *Coordinates `json:"coordinates,omitempty" bson:"coordinates,omitempty"`

	GovernmentID         *AssetReference  `json:"governmentId,omitempty" bson:"governmentId,omitempty"`
	VerificationDocument *AssetReference  `json:"verificationDocument,omitempty" bson:"verificationDocument,omitempty"`
	BusinessPhotos       []AssetReference `json:"businessPhotos" bson:"businessPhotos"`
	IntroVideo           *AssetReference  `json:"introVideo,omitempty" bson:"introVideo,omitempty"`
	IntroVideoThumbnail  *AssetReference  `json:"introVideoThumbnail,omitempty" bson:"introVideoThumbnail,omitempty"`

	PaymentMethods     []string `json:"paymentMethods" bson:"paymentMethods"`
	UPIID              string   `json:"upiId,omitempty" bson:"upiId,omitempty"`
	BankDetails        string   `json:"bankDetails,omitempty" bson:"bankDetails,omitempty"`
	UseManagedPayments bool     `json:"useManagedPayments" bson:"useManagedPayments"`

	TermsAccepted    bool `json:"termsAccepted" bson:"termsAccepted"`
	DetailsConfirmed bool `json:"detailsConfirmed" bson:"detailsConfirmed"`

	Status        string `json:"status" bson:"status"`
	IsVerified    bool   `json:"isVerified" bson:"isVerified"`
	PhoneVerified bool   `json:"phoneVerified" bson:"phoneVerified"`
	CreatedAt     string `json:"createdAt" bson:"createdAt"`   // ISO-8601
	VerifiedAt    string `json:"verifiedAt" bson:"verifiedAt"` // ISO-8601
}

// BusinessUser is the authentication-facing record of a business, keyed by email.
type BusinessUser struct {
	Email         string `json:"email" bson:"email"`
	BusinessID    string `json:"businessId" bson:"businessId"`
	BusinessName  string `json:"businessName" bson:"businessName"`
	ContactPerson string `json:"contactPerson" bson:"contactPerson"`
	Phone         string `json:"phone" bson:"phone"`
	BusinessType  string `json:"businessType" bson:"businessType"`
	AccountType   string `json:"accountType" bson:"accountType"`
	FirebaseUID   string `json:"firebaseUID,omitempty" bson:"firebaseUID,omitempty"`
	IsVerified    bool   `json:"isVerified" bson:"isVerified"`
	PhoneVerified bool   `json:"phoneVerified" bson:"phoneVerified"`
	EmailVerified bool   `json:"emailVerified" bson:"emailVerified"`
	CreatedAt     string `json:"createdAt" bson:"createdAt"`
	UpdatedAt     string `json:"updatedAt" bson:"updatedAt"`
}
