package submission

import (
	"strings"
	"time"

	"github.com/HSouheill/barrim_onboarding/models"
	"github.com/HSouheill/barrim_onboarding/services/upload"
	"github.com/HSouheill/barrim_onboarding/utils"
	"github.com/rotisserie/eris"
)

type mediaField struct {
	name     string
	category string
	asset    *models.MediaAsset
}

func mediaFields(form *models.FormAggregate) []mediaField {
	return []mediaField{
		{models.AssetLogo, models.CategoryProfile, form.Logo},
		{models.AssetCover, models.CategoryProfile, form.Cover},
		{models.AssetGovernmentID, models.CategoryVerification, form.GovernmentID},
		{models.AssetVerificationDocument, models.CategoryVerification, form.VerificationDocument},
		{models.AssetIntroVideo, models.CategoryVerification, form.IntroVideo},
	}
}

// Assets lists every media asset of the form for the upload pipeline.
func Assets(form models.FormAggregate) []upload.NamedAsset {
	var assets []upload.NamedAsset
	for _, f := range mediaFields(&form) {
		if f.asset == nil {
			continue
		}
		assets = append(assets, upload.NamedAsset{Name: f.name, Category: f.category, Source: f.asset.Source()})
	}
	return append(assets, upload.PhotoAssets(form.BusinessPhotos)...)
}

// BuildBusiness shapes the persisted record from the form and the upload
// outcome. Every media field of the form must have a durable reference.
func BuildBusiness(form models.FormAggregate, businessID string, outcome upload.Outcome, now time.Time) (models.Business, error) {
	email, err := utils.SanitizeEmail(form.Email)
	if err != nil {
		return models.Business{}, err
	}

	ts := now.UTC().Format(time.RFC3339)
	b := models.Business{
		BusinessID:   businessID,
		BusinessName: utils.SanitizeInput(form.BusinessName),
		BusinessType: utils.SanitizeInput(form.BusinessType),
		Description:  utils.SanitizeInput(form.Description),
		Categories:   utils.SanitizeStringArray(form.Categories),

		OwnerName: utils.SanitizeInput(form.OwnerName),
		Phone:     strings.TrimSpace(form.Phone),
		Email:     email,
		Address:   utils.SanitizeInput(form.Address),
		StateCode: utils.SanitizeInput(form.StateCode),
		StateName: utils.SanitizeInput(form.StateName),
		CityID:    form.CityID,
		CityName:  utils.SanitizeInput(form.CityName),

		PaymentMethods:     utils.SanitizeStringArray(form.PaymentMethods),
		UPIID:              utils.SanitizeInput(form.UPIID),
		BankDetails:        utils.SanitizeInput(form.BankDetails),
		UseManagedPayments: form.UseManagedPayments,

		TermsAccepted:    form.TermsAccepted,
		DetailsConfirmed: form.DetailsConfirmed,

		Status:        models.BusinessStatusActive,
		IsVerified:    true,
		PhoneVerified: true,
		CreatedAt:     ts,
		VerifiedAt:    ts,
	}
	if form.FoundingYear != nil {
		year := *form.FoundingYear
		b.FoundingYear = &year
	}
	if form.Coordinates != nil {
		c := *form.Coordinates
		b.Coordinates = &c
	}

	targets := map[string]**models.AssetReference{
		models.AssetLogo:                 &b.Logo,
		models.AssetCover:                &b.Cover,
		models.AssetGovernmentID:         &b.GovernmentID,
		models.AssetVerificationDocument: &b.VerificationDocument,
		models.AssetIntroVideo:           &b.IntroVideo,
	}
	for _, f := range mediaFields(&form) {
		if f.asset == nil {
			continue
		}
		ref, ok := outcome.Results[f.name]
		if !ok || ref.URL == "" {
			return models.Business{}, eris.Errorf("%s has no durable reference", f.name)
		}
		r := ref
		*targets[f.name] = &r
	}

	if len(outcome.Photos) != len(form.BusinessPhotos) {
		return models.Business{}, eris.Errorf("expected %d business photos, have %d references",
			len(form.BusinessPhotos), len(outcome.Photos))
	}
	b.BusinessPhotos = make([]models.AssetReference, 0, len(outcome.Photos))
	for i, ref := range outcome.Photos {
		if ref.URL == "" {
			return models.Business{}, eris.Errorf("business photo %d has no durable reference", i+1)
		}
		b.BusinessPhotos = append(b.BusinessPhotos, ref)
	}

	if ref, ok := outcome.Results[models.AssetIntroVideoThumbnail]; ok && ref.URL != "" {
		r := ref
		b.IntroVideoThumbnail = &r
	}
	return b, nil
}

// BuildBusinessUser derives the authentication-facing record.
func BuildBusinessUser(b models.Business, firebaseUID string, now time.Time) models.BusinessUser {
	ts := now.UTC().Format(time.RFC3339)
	return models.BusinessUser{
		Email:         b.Email,
		BusinessID:    b.BusinessID,
		BusinessName:  b.BusinessName,
		ContactPerson: b.OwnerName,
		Phone:         b.Phone,
		BusinessType:  b.BusinessType,
		AccountType:   models.AccountTypeBusiness,
		FirebaseUID:   firebaseUID,
		IsVerified:    true,
		PhoneVerified: b.PhoneVerified,
		EmailVerified: false,
		CreatedAt:     ts,
		UpdatedAt:     ts,
	}
}
