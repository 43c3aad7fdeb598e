package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// jsonbValue marshals a Go value into a JSONB column value
func jsonbValue(v interface{}) (driver.Value, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// jsonbScan unmarshals a JSONB column into dest
func jsonbScan(src interface{}, dest interface{}) error {
	if src == nil {
		return nil
	}
	switch data := src.(type) {
	case []byte:
		return json.Unmarshal(data, dest)
	case string:
		return json.Unmarshal([]byte(data), dest)
	default:
		return fmt.Errorf("unsupported jsonb source type %T", src)
	}
}

// GatewayResponse holds the raw payment gateway payload as JSONB
type GatewayResponse map[string]interface{}

// Value implements the driver.Valuer interface
func (g GatewayResponse) Value() (driver.Value, error) {
	if g == nil {
		return nil, nil
	}
	return jsonbValue(map[string]interface{}(g))
}

// Scan implements the sql.Scanner interface
func (g *GatewayResponse) Scan(src interface{}) error {
	if src == nil {
		*g = nil
		return nil
	}
	return jsonbScan(src, (*map[string]interface{})(g))
}
