package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Passenger 乘车人
type Passenger struct {
	Name            string `json:"name"`
	CertificateID   string `json:"certificate_id"`
	CertificateType string `json:"certificate_type"`
}

// PassengerList 乘车人列表，以 JSON 存储
type PassengerList []Passenger

// Value 实现 driver.Valuer 接口
func (p PassengerList) Value() (driver.Value, error) {
	if p == nil {
		return "[]", nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan 实现 sql.Scanner 接口
func (p *PassengerList) Scan(value interface{}) error {
	if value == nil {
		*p = PassengerList{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported passenger list type %T", value)
	}
	if len(raw) == 0 {
		*p = PassengerList{}
		return nil
	}
	return json.Unmarshal(raw, p)
}
