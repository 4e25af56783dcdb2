package service

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/railbook-next/internal/constants"
	"github.com/railbook-next/internal/models"
)

// CertificateValidator 证件号格式校验
type CertificateValidator interface {
	Type() string
	Validate(certificateID string) bool
}

type patternCertificateValidator struct {
	certType string
	pattern  *regexp.Regexp
}

func (v patternCertificateValidator) Type() string {
	return v.certType
}

func (v patternCertificateValidator) Validate(certificateID string) bool {
	return v.pattern.MatchString(strings.TrimSpace(certificateID))
}

var (
	// 18 位末位可为 X，兼容 17 位旧号
	nationalIDPattern = regexp.MustCompile(`^\d{17}[\dXx]?$`)
	passportPattern   = regexp.MustCompile(`^[A-Za-z0-9]{6,18}$`)
	permitPattern     = regexp.MustCompile(`^[A-Za-z0-9]{6,18}$`)
)

var defaultCertificateValidators = map[string]CertificateValidator{
	constants.CertificateTypeNationalID: patternCertificateValidator{certType: constants.CertificateTypeNationalID, pattern: nationalIDPattern},
	constants.CertificateTypePassport:   patternCertificateValidator{certType: constants.CertificateTypePassport, pattern: passportPattern},
	constants.CertificateTypePermit:     patternCertificateValidator{certType: constants.CertificateTypePermit, pattern: permitPattern},
}

// normalizeCertificateType 归一化证件类型，空值按身份证处理
func normalizeCertificateType(raw string) string {
	certType := strings.ToLower(strings.TrimSpace(raw))
	if certType == "" {
		return constants.CertificateTypeNationalID
	}
	return certType
}

// ValidateCertificate 按证件类型校验证件号
func ValidateCertificate(certType, certificateID string) error {
	normalized := normalizeCertificateType(certType)
	validator, ok := defaultCertificateValidators[normalized]
	if !ok {
		verr := NewValidationError()
		verr.Add("certificate_type", "unsupported")
		return verr
	}
	if !validator.Validate(certificateID) {
		return fmt.Errorf("%w: %s", ErrInvalidCertificateFormat, normalized)
	}
	return nil
}

// normalizePassengers 校验乘车人必填项与证件号格式
func normalizePassengers(passengers []models.Passenger) (models.PassengerList, error) {
	verr := NewValidationError()
	if len(passengers) == 0 {
		verr.Add("passengers", "required")
		return nil, verr
	}
	result := make(models.PassengerList, 0, len(passengers))
	for idx, passenger := range passengers {
		name := strings.TrimSpace(passenger.Name)
		certID := strings.TrimSpace(passenger.CertificateID)
		prefix := fmt.Sprintf("passengers[%d]", idx)
		if name == "" {
			verr.Add(prefix+".name", "required")
		}
		if certID == "" {
			verr.Add(prefix+".certificate_id", "required")
		}
		certType := normalizeCertificateType(passenger.CertificateType)
		if _, ok := defaultCertificateValidators[certType]; !ok {
			verr.Add(prefix+".certificate_type", "unsupported")
		}
		result = append(result, models.Passenger{
			Name:            name,
			CertificateID:   certID,
			CertificateType: certType,
		})
	}
	if err := verr.errOrNil(); err != nil {
		return nil, err
	}
	for idx, passenger := range result {
		if err := ValidateCertificate(passenger.CertificateType, passenger.CertificateID); err != nil {
			return nil, fmt.Errorf("passengers[%d].certificate_id: %w", idx, err)
		}
	}
	return result, nil
}
