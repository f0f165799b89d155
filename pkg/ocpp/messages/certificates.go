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

package messages

// Action names of the certificate management operations.
const (
	ActionCertificateSigned          = "CertificateSigned"
	ActionDeleteCertificate          = "DeleteCertificate"
	ActionGet15118EVCertificate      = "Get15118EVCertificate"
	ActionGetCRL                     = "GetCRL"
	ActionGetCertificateStatus       = "GetCertificateStatus"
	ActionGetInstalledCertificateIds = "GetInstalledCertificateIds"
	ActionInstallCertificate         = "InstallCertificate"
	ActionNotifyCRL                  = "NotifyCRL"
	ActionSignCertificate            = "SignCertificate"
)

// CertificateSignedRequest delivers a signed certificate chain to a charging
// station.
type CertificateSignedRequest struct {
	CertificateChain string                `json:"certificateChain"`
	CertificateType  CertificateSigningUse `json:"certificateType,omitempty"`
	RequestID        *int                  `json:"requestId,omitempty"`
	CustomData       *CustomData           `json:"customData,omitempty"`
}

func (r *CertificateSignedRequest) Validate() error {
	return firstErr(
		required("certificateChain", r.CertificateChain),
		maxLen("certificateChain", r.CertificateChain, 100000),
		optionalOneOf("certificateType", r.CertificateType, signingUses...),
		nested("customData", r.CustomData.Validate()),
	)
}

// CertificateSignedStatus is the result of a CertificateSigned request.
type CertificateSignedStatus string

// CertificateSigned statuses.
const (
	CertificateSignedAccepted CertificateSignedStatus = "Accepted"
	CertificateSignedRejected CertificateSignedStatus = "Rejected"
)

type CertificateSignedResponse struct {
	Status     CertificateSignedStatus `json:"status"`
	StatusInfo *StatusInfo             `json:"statusInfo,omitempty"`
	CustomData *CustomData             `json:"customData,omitempty"`
}

func (r *CertificateSignedResponse) Validate() error {
	return firstErr(
		oneOf("status", r.Status, CertificateSignedAccepted, CertificateSignedRejected),
		nested("statusInfo", r.StatusInfo.Validate()),
		nested("customData", r.CustomData.Validate()),
	)
}

// DeleteCertificateRequest asks a charging station to delete an installed
// certificate.
type DeleteCertificateRequest struct {
	CertificateHashData CertificateHashData `json:"certificateHashData"`
	CustomData          *CustomData         `json:"customData,omitempty"`
}

func (r *DeleteCertificateRequest) Validate() error {
	if r.CertificateHashData == (CertificateHashData{}) {
		return missing("certificateHashData")
	}
	return firstErr(
		nested("certificateHashData", r.CertificateHashData.Validate()),
		nested("customData", r.CustomData.Validate()),
	)
}

// DeleteCertificateStatus is the result of a DeleteCertificate request.
type DeleteCertificateStatus string

// DeleteCertificate statuses.
const (
	DeleteCertificateAccepted DeleteCertificateStatus = "Accepted"
	DeleteCertificateFailed   DeleteCertificateStatus = "Failed"
	DeleteCertificateNotFound DeleteCertificateStatus = "NotFound"
)

type DeleteCertificateResponse struct {
	Status     DeleteCertificateStatus `json:"status"`
	StatusInfo *StatusInfo             `json:"statusInfo,omitempty"`
	CustomData *CustomData             `json:"customData,omitempty"`
}

func (r *DeleteCertificateResponse) Validate() error {
	return firstErr(
		oneOf("status", r.Status, DeleteCertificateAccepted, DeleteCertificateFailed,
			DeleteCertificateNotFound),
		nested("statusInfo", r.StatusInfo.Validate()),
		nested("customData", r.CustomData.Validate()),
	)
}

// CertificateAction selects whether an EV contract certificate is installed
// or updated.
type CertificateAction string

// Certificate actions.
const (
	CertificateActionInstall CertificateAction = "Install"
	CertificateActionUpdate  CertificateAction = "Update"
)

// Get15118EVCertificateRequest relays an ISO 15118 certificate installation
// request of an EV to the CSMS.
type Get15118EVCertificateRequest struct {
	ISO15118SchemaVersion            string            `json:"iso15118SchemaVersion"`
	Action                           CertificateAction `json:"action"`
	EXIRequest                       string            `json:"exiRequest"`
	MaximumContractCertificateChains *int              `json:"maximumContractCertificateChains,omitempty"`
	PrioritizedEMAIDs                []string          `json:"prioritizedEMAIDs,omitempty"`
	CustomData                       *CustomData       `json:"customData,omitempty"`
}

func (r *Get15118EVCertificateRequest) Validate() error {
	return firstErr(
		required("iso15118SchemaVersion", r.ISO15118SchemaVersion),
		maxLen("iso15118SchemaVersion", r.ISO15118SchemaVersion, 50),
		oneOf("action", r.Action, CertificateActionInstall, CertificateActionUpdate),
		required("exiRequest", r.EXIRequest),
		maxLen("exiRequest", r.EXIRequest, 11000),
		nested("customData", r.CustomData.Validate()),
	)
}

// ISO15118EVCertificateStatus is the result of a Get15118EVCertificate
// request.
type ISO15118EVCertificateStatus string

// Get15118EVCertificate statuses.
const (
	ISO15118EVCertificateAccepted ISO15118EVCertificateStatus = "Accepted"
	ISO15118EVCertificateFailed   ISO15118EVCertificateStatus = "Failed"
)

type Get15118EVCertificateResponse struct {
	Status             ISO15118EVCertificateStatus `json:"status"`
	StatusInfo         *StatusInfo                 `json:"statusInfo,omitempty"`
	EXIResponse        string                      `json:"exiResponse"`
	RemainingContracts *int                        `json:"remainingContracts,omitempty"`
	CustomData         *CustomData                 `json:"customData,omitempty"`
}

func (r *Get15118EVCertificateResponse) Validate() error {
	return firstErr(
		oneOf("status", r.Status, ISO15118EVCertificateAccepted, ISO15118EVCertificateFailed),
		maxLen("exiResponse", r.EXIResponse, 17000),
		nested("statusInfo", r.StatusInfo.Validate()),
		nested("customData", r.CustomData.Validate()),
	)
}

// GetCRLRequest asks the CSMS for the certificate revocation list of a CA.
type GetCRLRequest struct {
	RequestID           int                 `json:"requestId"`
	CertificateHashData CertificateHashData `json:"certificateHashData"`
	CustomData          *CustomData         `json:"customData,omitempty"`
}

func (r *GetCRLRequest) Validate() error {
	if r.CertificateHashData == (CertificateHashData{}) {
		return missing("certificateHashData")
	}
	return firstErr(
		nested("certificateHashData", r.CertificateHashData.Validate()),
		nested("customData", r.CustomData.Validate()),
	)
}

type GetCRLResponse struct {
	RequestID  int           `json:"requestId"`
	Status     GenericStatus `json:"status"`
	StatusInfo *StatusInfo   `json:"statusInfo,omitempty"`
	CustomData *CustomData   `json:"customData,omitempty"`
}

func (r *GetCRLResponse) Validate() error {
	return firstErr(
		oneOf("status", r.Status, GenericStatusAccepted, GenericStatusRejected),
		nested("statusInfo", r.StatusInfo.Validate()),
		nested("customData", r.CustomData.Validate()),
	)
}

// OCSPRequestData identifies a certificate for an OCSP status request.
type OCSPRequestData struct {
	HashAlgorithm  HashAlgorithm `json:"hashAlgorithm"`
	IssuerNameHash string        `json:"issuerNameHash"`
	IssuerKeyHash  string        `json:"issuerKeyHash"`
	SerialNumber   string        `json:"serialNumber"`
	ResponderURL   string        `json:"responderURL"`
	CustomData     *CustomData   `json:"customData,omitempty"`
}

func (d *OCSPRequestData) Validate() error {
	return firstErr(
		oneOf("hashAlgorithm", d.HashAlgorithm, SHA256, SHA384, SHA512),
		required("issuerNameHash", d.IssuerNameHash),
		required("issuerKeyHash", d.IssuerKeyHash),
		required("serialNumber", d.SerialNumber),
		maxLen("serialNumber", d.SerialNumber, 40),
		required("responderURL", d.ResponderURL),
		maxLen("responderURL", d.ResponderURL, 2000),
		nested("customData", d.CustomData.Validate()),
	)
}

// GetCertificateStatusRequest relays an OCSP status request of a charging
// station.
type GetCertificateStatusRequest struct {
	OCSPRequestData OCSPRequestData `json:"ocspRequestData"`
	CustomData      *CustomData     `json:"customData,omitempty"`
}

func (r *GetCertificateStatusRequest) Validate() error {
	if r.OCSPRequestData == (OCSPRequestData{}) {
		return missing("ocspRequestData")
	}
	return firstErr(
		nested("ocspRequestData", r.OCSPRequestData.Validate()),
		nested("customData", r.CustomData.Validate()),
	)
}

// GetCertificateStatus is the result of a GetCertificateStatus request.
type GetCertificateStatus string

// GetCertificateStatus statuses.
const (
	GetCertificateStatusAccepted GetCertificateStatus = "Accepted"
	GetCertificateStatusFailed   GetCertificateStatus = "Failed"
)

type GetCertificateStatusResponse struct {
	Status     GetCertificateStatus `json:"status"`
	StatusInfo *StatusInfo          `json:"statusInfo,omitempty"`
	OCSPResult string               `json:"ocspResult,omitempty"`
	CustomData *CustomData          `json:"customData,omitempty"`
}

func (r *GetCertificateStatusResponse) Validate() error {
	return firstErr(
		oneOf("status", r.Status, GetCertificateStatusAccepted, GetCertificateStatusFailed),
		maxLen("ocspResult", r.OCSPResult, 18000),
		nested("statusInfo", r.StatusInfo.Validate()),
		nested("customData", r.CustomData.Validate()),
	)
}

// GetInstalledCertificateIdsRequest asks a charging station for the ids of
// its installed certificates.
type GetInstalledCertificateIdsRequest struct {
	CertificateType []GetCertificateIDUse `json:"certificateType,omitempty"`
	CustomData      *CustomData           `json:"customData,omitempty"`
}

func (r *GetInstalledCertificateIdsRequest) Validate() error {
	for _, t := range r.CertificateType {
		if err := oneOf("certificateType", t, idUses...); err != nil {
			return err
		}
	}
	return nested("customData", r.CustomData.Validate())
}

// GetInstalledCertificateStatus is the result of a
// GetInstalledCertificateIds request.
type GetInstalledCertificateStatus string

// GetInstalledCertificateIds statuses.
const (
	GetInstalledCertificateAccepted GetInstalledCertificateStatus = "Accepted"
	GetInstalledCertificateNotFound GetInstalledCertificateStatus = "NotFound"
)

// CertificateHashDataChain is an installed certificate and its child
// certificates.
type CertificateHashDataChain struct {
	CertificateType          GetCertificateIDUse   `json:"certificateType"`
	CertificateHashData      CertificateHashData   `json:"certificateHashData"`
	ChildCertificateHashData []CertificateHashData `json:"childCertificateHashData,omitempty"`
	CustomData               *CustomData           `json:"customData,omitempty"`
}

func (c *CertificateHashDataChain) Validate() error {
	if err := oneOf("certificateType", c.CertificateType, idUses...); err != nil {
		return err
	}
	if err := nested("certificateHashData", c.CertificateHashData.Validate()); err != nil {
		return err
	}
	for i := range c.ChildCertificateHashData {
		err := c.ChildCertificateHashData[i].Validate()
		if err != nil {
			return nested("childCertificateHashData", err)
		}
	}
	return nested("customData", c.CustomData.Validate())
}

type GetInstalledCertificateIdsResponse struct {
	Status                   GetInstalledCertificateStatus `json:"status"`
	StatusInfo               *StatusInfo                   `json:"statusInfo,omitempty"`
	CertificateHashDataChain []CertificateHashDataChain    `json:"certificateHashDataChain,omitempty"`
	CustomData               *CustomData                   `json:"customData,omitempty"`
}

func (r *GetInstalledCertificateIdsResponse) Validate() error {
	err := oneOf("status", r.Status, GetInstalledCertificateAccepted,
		GetInstalledCertificateNotFound)
	if err != nil {
		return err
	}
	for i := range r.CertificateHashDataChain {
		if err := r.CertificateHashDataChain[i].Validate(); err != nil {
			return nested("certificateHashDataChain", err)
		}
	}
	return firstErr(
		nested("statusInfo", r.StatusInfo.Validate()),
		nested("customData", r.CustomData.Validate()),
	)
}

// InstallCertificateRequest installs a root certificate on a charging
// station.
type InstallCertificateRequest struct {
	CertificateType InstallCertificateUse `json:"certificateType"`
	Certificate     string                `json:"certificate"`
	CustomData      *CustomData           `json:"customData,omitempty"`
}

func (r *InstallCertificateRequest) Validate() error {
	return firstErr(
		oneOf("certificateType", r.CertificateType, installUses...),
		required("certificate", r.Certificate),
		maxLen("certificate", r.Certificate, 10000),
		nested("customData", r.CustomData.Validate()),
	)
}

// InstallCertificateStatus is the result of an InstallCertificate request.
type InstallCertificateStatus string

// InstallCertificate statuses.
const (
	InstallCertificateAccepted InstallCertificateStatus = "Accepted"
	InstallCertificateRejected InstallCertificateStatus = "Rejected"
	InstallCertificateFailed   InstallCertificateStatus = "Failed"
)

type InstallCertificateResponse struct {
	Status     InstallCertificateStatus `json:"status"`
	StatusInfo *StatusInfo              `json:"statusInfo,omitempty"`
	CustomData *CustomData              `json:"customData,omitempty"`
}

func (r *InstallCertificateResponse) Validate() error {
	return firstErr(
		oneOf("status", r.Status, InstallCertificateAccepted, InstallCertificateRejected,
			InstallCertificateFailed),
		nested("statusInfo", r.StatusInfo.Validate()),
		nested("customData", r.CustomData.Validate()),
	)
}

// NotifyCRLStatus tells whether a requested CRL is available.
type NotifyCRLStatus string

// NotifyCRL statuses.
const (
	NotifyCRLAvailable   NotifyCRLStatus = "Available"
	NotifyCRLUnavailable NotifyCRLStatus = "Unavailable"
)

// NotifyCRLRequest informs a charging station about the availability of a
// requested CRL.
type NotifyCRLRequest struct {
	RequestID  int             `json:"requestId"`
	Status     NotifyCRLStatus `json:"status"`
	Location   string          `json:"location,omitempty"`
	CustomData *CustomData     `json:"customData,omitempty"`
}

func (r *NotifyCRLRequest) Validate() error {
	return firstErr(
		oneOf("status", r.Status, NotifyCRLAvailable, NotifyCRLUnavailable),
		maxLen("location", r.Location, 2000),
		nested("customData", r.CustomData.Validate()),
	)
}

// NotifyCRLResponse carries no data.
type NotifyCRLResponse struct {
	CustomData *CustomData `json:"customData,omitempty"`
}

func (r *NotifyCRLResponse) Validate() error {
	return nested("customData", r.CustomData.Validate())
}

// SignCertificateRequest relays a certificate signing request of a charging
// station to the CSMS.
type SignCertificateRequest struct {
	CSR                 string                `json:"csr"`
	CertificateType     CertificateSigningUse `json:"certificateType,omitempty"`
	HashRootCertificate *CertificateHashData  `json:"hashRootCertificate,omitempty"`
	RequestID           *int                  `json:"requestId,omitempty"`
	CustomData          *CustomData           `json:"customData,omitempty"`
}

func (r *SignCertificateRequest) Validate() error {
	if err := firstErr(
		required("csr", r.CSR),
		maxLen("csr", r.CSR, 11000),
		optionalOneOf("certificateType", r.CertificateType, signingUses...),
	); err != nil {
		return err
	}
	if r.HashRootCertificate != nil {
		if err := r.HashRootCertificate.Validate(); err != nil {
			return nested("hashRootCertificate", err)
		}
	}
	return nested("customData", r.CustomData.Validate())
}

type SignCertificateResponse struct {
	Status     GenericStatus `json:"status"`
	StatusInfo *StatusInfo   `json:"statusInfo,omitempty"`
	CustomData *CustomData   `json:"customData,omitempty"`
}

func (r *SignCertificateResponse) Validate() error {
	return firstErr(
		oneOf("status", r.Status, GenericStatusAccepted, GenericStatusRejected),
		nested("statusInfo", r.StatusInfo.Validate()),
		nested("customData", r.CustomData.Validate()),
	)
}
