package wizard

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/HSouheill/barrim_onboarding/models"
	"github.com/HSouheill/barrim_onboarding/utils"
	"github.com/go-playground/validator/v10"
)

const (
	minPhotos = 3
	maxPhotos = 5

	messagePhoneUnverified = "phone number must be verified"
)

// PhoneVerifier reports whether a phone number passed OTP verification.
type PhoneVerifier interface {
	IsVerified(phone string) bool
}

type (
	profileStep struct {
		BusinessName string   `json:"businessName" validate:"required"`
		BusinessType string   `json:"businessType" validate:"required,businesstype"`
		Description  string   `json:"description" validate:"required,min=20,max=500"`
		Categories   []string `json:"categories" validate:"min=1,dive,required"`
		FoundingYear *int     `json:"foundingYear" validate:"omitempty,min=1800,notfuture"`
	}

	contactStep struct {
		OwnerName string `json:"ownerName" validate:"required"`
		Phone     string `json:"phone" validate:"required,phone10"`
		Email     string `json:"email" validate:"required,emailaddr"`
		Address   string `json:"address" validate:"required"`
		StateCode string `json:"stateCode" validate:"required"`
		CityID    int    `json:"cityId" validate:"required"`
	}

	paymentStep struct {
		PaymentMethods []string `json:"paymentMethods" validate:"min=1,dive,paymentmethod"`
	}
)

// Validator checks one step of the form at a time.
type Validator struct {
	validate *validator.Validate
	now      func() time.Time
}

func NewValidator(now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	v := &Validator{validate: validator.New(), now: now}

	v.validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.validate.RegisterValidation("phone10", func(fl validator.FieldLevel) bool {
		return utils.IsValidPhone10(fl.Field().String())
	})
	_ = v.validate.RegisterValidation("emailaddr", func(fl validator.FieldLevel) bool {
		_, err := utils.SanitizeEmail(fl.Field().String())
		return err == nil
	})
	_ = v.validate.RegisterValidation("notfuture", func(fl validator.FieldLevel) bool {
		return fl.Field().Int() <= int64(v.now().Year())
	})
	_ = v.validate.RegisterValidation("businesstype", func(fl validator.FieldLevel) bool {
		return contains(models.BusinessTypes, fl.Field().String())
	})
	_ = v.validate.RegisterValidation("paymentmethod", func(fl validator.FieldLevel) bool {
		return contains(models.PaymentMethods, fl.Field().String())
	})
	return v
}

// Struct validates any tagged struct. Controllers use it for request bodies.
func (v *Validator) Struct(s interface{}) error {
	return v.validate.Struct(s)
}

// FieldErrors validates the fields of one step. Step 5 has no forward
// checks. The verified-phone rule of step 2 is applied by Step.
func (v *Validator) FieldErrors(step int, form models.FormAggregate) models.FieldErrors {
	errs := models.FieldErrors{}

	switch step {
	case 1:
		v.collect(errs, profileStep{
			BusinessName: strings.TrimSpace(form.BusinessName),
			BusinessType: form.BusinessType,
			Description:  strings.TrimSpace(form.Description),
			Categories:   form.Categories,
			FoundingYear: form.FoundingYear,
		})
		if !hasAsset(form.Logo) {
			errs["logo"] = "logo is required"
		}
	case 2:
		v.collect(errs, contactStep{
			OwnerName: strings.TrimSpace(form.OwnerName),
			Phone:     strings.TrimSpace(form.Phone),
			Email:     strings.TrimSpace(form.Email),
			Address:   strings.TrimSpace(form.Address),
			StateCode: form.StateCode,
			CityID:    form.CityID,
		})
	case 3:
		if !hasAsset(form.GovernmentID) {
			errs["governmentId"] = "government ID is required"
		}
		if !hasAsset(form.VerificationDocument) {
			errs["verificationDocument"] = "verification document is required"
		}
		switch n := len(form.BusinessPhotos); {
		case n < minPhotos:
			errs["businessPhotos"] = fmt.Sprintf("at least %d business photos are required", minPhotos)
		case n > maxPhotos:
			errs["businessPhotos"] = fmt.Sprintf("at most %d business photos are allowed", maxPhotos)
		}
	case 4:
		v.collect(errs, paymentStep{PaymentMethods: form.PaymentMethods})
		upi := strings.TrimSpace(form.UPIID)
		if form.HasPaymentMethod(models.PaymentUPI) {
			if upi == "" {
				errs["upiId"] = "UPI ID is required for UPI payments"
			} else if !utils.IsValidUPIID(upi) {
				errs["upiId"] = "invalid UPI ID"
			}
		}
		if form.HasPaymentMethod(models.PaymentBankTransfer) && strings.TrimSpace(form.BankDetails) == "" {
			errs["bankDetails"] = "bank details are required for bank transfers"
		}
	}
	return errs
}

// Step runs FieldErrors and, for step 2, requires the phone number to be
// verified.
func (v *Validator) Step(step int, form models.FormAggregate, phones PhoneVerifier) models.FieldErrors {
	errs := v.FieldErrors(step, form)
	if step == 2 {
		if _, bad := errs["phone"]; !bad {
			if phones == nil || !phones.IsVerified(strings.TrimSpace(form.Phone)) {
				errs["phone"] = messagePhoneUnverified
			}
		}
	}
	return errs
}

// ConsentErrors reports the missing consents of step 5.
func ConsentErrors(form models.FormAggregate) models.FieldErrors {
	errs := models.FieldErrors{}
	if !form.TermsAccepted {
		errs["termsAccepted"] = "terms and conditions must be accepted"
	}
	if !form.DetailsConfirmed {
		errs["detailsConfirmed"] = "details must be confirmed"
	}
	return errs
}

func (v *Validator) collect(errs models.FieldErrors, s interface{}) {
	err := v.validate.Struct(s)
	if err == nil {
		return
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		errs["form"] = err.Error()
		return
	}
	for _, fe := range verrs {
		field := fe.Field()
		if i := strings.IndexByte(field, '['); i >= 0 {
			field = field[:i]
		}
		if _, seen := errs[field]; !seen {
			errs[field] = message(fe)
		}
	}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		switch fe.Kind() {
		case reflect.String:
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		case reflect.Slice:
			return fmt.Sprintf("select at least %s", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "email", "emailaddr":
		return "must be a valid email address"
	case "phone10":
		return "must be a 10-digit phone number"
	case "notfuture":
		return "cannot be in the future"
	case "businesstype":
		return "must be one of: " + strings.Join(models.BusinessTypes, ", ")
	case "paymentmethod":
		return "must be one of: " + strings.Join(models.PaymentMethods, ", ")
	}
	return "is invalid"
}

func hasAsset(m *models.MediaAsset) bool {
	return m.IsRemote() || m.IsLocal()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
