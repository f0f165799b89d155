// Copyright 2026 The ocppnode Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package messages contains the payload types of the OCPP certificate
// management operations relayed by networking nodes.
//
// Every payload validates itself: Validate returns an error naming the JSON
// field that is missing or malformed.
package messages

import (
	"encoding/json"
	"errors"
	"slices"
	"unicode/utf8"

	"github.com/gridlink/ocppnode/pkg/private/serrors"
)

var (
	// ErrMissingField indicates that a mandatory field is absent.
	ErrMissingField = errors.New("missing mandatory field")
	// ErrInvalidValue indicates that a field has a value outside its domain.
	ErrInvalidValue = errors.New("invalid field value")
	// ErrTooLong indicates that a string field exceeds its maximum length.
	ErrTooLong = errors.New("field value too long")
)

// Validator is implemented by all payloads.
type Validator interface {
	Validate() error
}

func missing(field string) error {
	return serrors.JoinNoStack(ErrMissingField, nil, "field", field)
}

func required(field, v string) error {
	if v == "" {
		return missing(field)
	}
	return nil
}

func maxLen(field, v string, n int) error {
	if l := utf8.RuneCountInString(v); l > n {
		return serrors.JoinNoStack(ErrTooLong, nil, "field", field, "length", l, "max", n)
	}
	return nil
}

func oneOf[T ~string](field string, v T, allowed ...T) error {
	if v == "" {
		return missing(field)
	}
	if !slices.Contains(allowed, v) {
		return serrors.JoinNoStack(ErrInvalidValue, nil, "field", field, "value", string(v))
	}
	return nil
}

func optionalOneOf[T ~string](field string, v T, allowed ...T) error {
	if v == "" {
		return nil
	}
	return oneOf(field, v, allowed...)
}

func nested(field string, err error) error {
	if err == nil {
		return nil
	}
	return serrors.WrapNoStack(field, err)
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// CustomData carries vendor specific extensions. Its content is relayed
// unchanged.
type CustomData struct {
	VendorID string `json:"vendorId"`
	// Extra holds all other properties of the object.
	Extra map[string]json.RawMessage `json:"-"`
}

// MarshalJSON flattens Extra into the object.
func (c CustomData) MarshalJSON() ([]byte, error) {
	m := make(map[string]json.RawMessage, len(c.Extra)+1)
	for k, v := range c.Extra {
		m[k] = v
	}
	vendor, err := json.Marshal(c.VendorID)
	if err != nil {
		return nil, err
	}
	m["vendorId"] = vendor
	return json.Marshal(m)
}

// UnmarshalJSON collects all properties but vendorId into Extra.
func (c *CustomData) UnmarshalJSON(raw []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return err
	}
	if v, ok := m["vendorId"]; ok {
		if err := json.Unmarshal(v, &c.VendorID); err != nil {
			return err
		}
		delete(m, "vendorId")
	}
	c.Extra = nil
	if len(m) > 0 {
		c.Extra = m
	}
	return nil
}

// Validate checks the vendor id.
func (c *CustomData) Validate() error {
	if c == nil {
		return nil
	}
	return firstErr(required("vendorId", c.VendorID), maxLen("vendorId", c.VendorID, 255))
}

// StatusInfo gives details about a status.
type StatusInfo struct {
	ReasonCode     string      `json:"reasonCode"`
	AdditionalInfo string      `json:"additionalInfo,omitempty"`
	CustomData     *CustomData `json:"customData,omitempty"`
}

// Validate checks the mandatory reason code.
func (s *StatusInfo) Validate() error {
	if s == nil {
		return nil
	}
	return firstErr(
		required("reasonCode", s.ReasonCode),
		maxLen("reasonCode", s.ReasonCode, 20),
		maxLen("additionalInfo", s.AdditionalInfo, 1024),
		nested("customData", s.CustomData.Validate()),
	)
}

// HashAlgorithm is the hash algorithm used to identify certificates.
type HashAlgorithm string

// Hash algorithms.
const (
	SHA256 HashAlgorithm = "SHA256"
	SHA384 HashAlgorithm = "SHA384"
	SHA512 HashAlgorithm = "SHA512"
)

// CertificateHashData identifies a certificate by the hashes of its issuer and
// its serial number.
type CertificateHashData struct {
	HashAlgorithm  HashAlgorithm `json:"hashAlgorithm"`
	IssuerNameHash string        `json:"issuerNameHash"`
	IssuerKeyHash  string        `json:"issuerKeyHash"`
	SerialNumber   string        `json:"serialNumber"`
	CustomData     *CustomData   `json:"customData,omitempty"`
}

// Validate checks all mandatory fields.
func (c *CertificateHashData) Validate() error {
	return firstErr(
		oneOf("hashAlgorithm", c.HashAlgorithm, SHA256, SHA384, SHA512),
		required("issuerNameHash", c.IssuerNameHash),
		maxLen("issuerNameHash", c.IssuerNameHash, 128),
		required("issuerKeyHash", c.IssuerKeyHash),
		maxLen("issuerKeyHash", c.IssuerKeyHash, 128),
		required("serialNumber", c.SerialNumber),
		maxLen("serialNumber", c.SerialNumber, 40),
		nested("customData", c.CustomData.Validate()),
	)
}

// GenericStatus is the status of operations that either succeed or are
// rejected.
type GenericStatus string

// Generic statuses.
const (
	GenericStatusAccepted GenericStatus = "Accepted"
	GenericStatusRejected GenericStatus = "Rejected"
)

// CertificateSigningUse is the use of a certificate that is signed by a CA.
type CertificateSigningUse string

// Certificate signing uses.
const (
	ChargingStationCertificate CertificateSigningUse = "ChargingStationCertificate"
	V2GCertificate             CertificateSigningUse = "V2GCertificate"
	V2G20Certificate           CertificateSigningUse = "V2G20Certificate"
)

var signingUses = []CertificateSigningUse{
	ChargingStationCertificate, V2GCertificate, V2G20Certificate,
}

// InstallCertificateUse is the type of an installable root certificate.
type InstallCertificateUse string

// Installable certificate types.
const (
	V2GRootCertificate          InstallCertificateUse = "V2GRootCertificate"
	MORootCertificate           InstallCertificateUse = "MORootCertificate"
	ManufacturerRootCertificate InstallCertificateUse = "ManufacturerRootCertificate"
	CSMSRootCertificate         InstallCertificateUse = "CSMSRootCertificate"
	OEMRootCertificate          InstallCertificateUse = "OEMRootCertificate"
)

var installUses = []InstallCertificateUse{
	V2GRootCertificate, MORootCertificate, ManufacturerRootCertificate,
	CSMSRootCertificate, OEMRootCertificate,
}

// GetCertificateIDUse is the certificate type queried by
// GetInstalledCertificateIds.
type GetCertificateIDUse string

// Queryable certificate types.
const (
	IDUseV2GRootCertificate          GetCertificateIDUse = "V2GRootCertificate"
	IDUseMORootCertificate           GetCertificateIDUse = "MORootCertificate"
	IDUseCSMSRootCertificate         GetCertificateIDUse = "CSMSRootCertificate"
	IDUseV2GCertificateChain         GetCertificateIDUse = "V2GCertificateChain"
	IDUseManufacturerRootCertificate GetCertificateIDUse = "ManufacturerRootCertificate"
	IDUseOEMRootCertificate          GetCertificateIDUse = "OEMRootCertificate"
)

var idUses = []GetCertificateIDUse{
	IDUseV2GRootCertificate, IDUseMORootCertificate, IDUseCSMSRootCertificate,
	IDUseV2GCertificateChain, IDUseManufacturerRootCertificate, IDUseOEMRootCertificate,
}
