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

// Package catalog instantiates the forwarding handler template for the OCPP
// certificate management operations.
//
// Every operation rejects with its own rejected status and a status info
// whose reason code is ReasonCode, so that a receiver can tell a rejection by
// a networking node from a rejection by the addressed party.
package catalog

import (
	"errors"

	"github.com/gridlink/ocppnode/pkg/forwarding"
	"github.com/gridlink/ocppnode/pkg/ocpp/envelope"
	m "github.com/gridlink/ocppnode/pkg/ocpp/messages"
)

// ReasonCode is the status info reason code of rejections made by the node.
const ReasonCode = "Filtered"

const maxAdditionalInfo = 1024

// Handlers are the typed handlers of the registered operations. Policies
// that need to inspect payloads subscribe to their events.
type Handlers struct {
	CertificateSigned          *forwarding.Handler[m.CertificateSignedRequest, m.CertificateSignedResponse]
	DeleteCertificate          *forwarding.Handler[m.DeleteCertificateRequest, m.DeleteCertificateResponse]
	Get15118EVCertificate      *forwarding.Handler[m.Get15118EVCertificateRequest, m.Get15118EVCertificateResponse]
	GetCRL                     *forwarding.Handler[m.GetCRLRequest, m.GetCRLResponse]
	GetCertificateStatus       *forwarding.Handler[m.GetCertificateStatusRequest, m.GetCertificateStatusResponse]
	GetInstalledCertificateIds *forwarding.Handler[m.GetInstalledCertificateIdsRequest, m.GetInstalledCertificateIdsResponse]
	InstallCertificate         *forwarding.Handler[m.InstallCertificateRequest, m.InstallCertificateResponse]
	NotifyCRL                  *forwarding.Handler[m.NotifyCRLRequest, m.NotifyCRLResponse]
	SignCertificate            *forwarding.Handler[m.SignCertificateRequest, m.SignCertificateResponse]
}

// Register registers all operations of the catalog with a.
func Register(a *forwarding.Adapter) (*Handlers, error) {
	var h Handlers
	var err error
	if h.CertificateSigned, err = forwarding.Register(a, operation(
		m.ActionCertificateSigned, true,
		func(_ *forwarding.Request[m.CertificateSignedRequest],
			info *m.StatusInfo) m.CertificateSignedResponse {

			return m.CertificateSignedResponse{Status: m.CertificateSignedRejected, StatusInfo: info}
		},
	)); err != nil {
		return nil, err
	}
	if h.DeleteCertificate, err = forwarding.Register(a, operation(
		m.ActionDeleteCertificate, false,
		func(_ *forwarding.Request[m.DeleteCertificateRequest],
			info *m.StatusInfo) m.DeleteCertificateResponse {

			return m.DeleteCertificateResponse{Status: m.DeleteCertificateFailed, StatusInfo: info}
		},
	)); err != nil {
		return nil, err
	}
	if h.Get15118EVCertificate, err = forwarding.Register(a, operation(
		m.ActionGet15118EVCertificate, false,
		func(_ *forwarding.Request[m.Get15118EVCertificateRequest],
			info *m.StatusInfo) m.Get15118EVCertificateResponse {

			// exiResponse is mandatory even if there is nothing to return.
			return m.Get15118EVCertificateResponse{
				Status:      m.ISO15118EVCertificateFailed,
				StatusInfo:  info,
				EXIResponse: "",
			}
		},
	)); err != nil {
		return nil, err
	}
	if h.GetCRL, err = forwarding.Register(a, operation(
		m.ActionGetCRL, false,
		func(req *forwarding.Request[m.GetCRLRequest], info *m.StatusInfo) m.GetCRLResponse {
			return m.GetCRLResponse{
				RequestID:  req.Payload.RequestID,
				Status:     m.GenericStatusRejected,
				StatusInfo: info,
			}
		},
	)); err != nil {
		return nil, err
	}
	if h.GetCertificateStatus, err = forwarding.Register(a, operation(
		m.ActionGetCertificateStatus, false,
		func(_ *forwarding.Request[m.GetCertificateStatusRequest],
			info *m.StatusInfo) m.GetCertificateStatusResponse {

			return m.GetCertificateStatusResponse{
				Status:     m.GetCertificateStatusFailed,
				StatusInfo: info,
			}
		},
	)); err != nil {
		return nil, err
	}
	if h.GetInstalledCertificateIds, err = forwarding.Register(a, operation(
		m.ActionGetInstalledCertificateIds, false,
		func(_ *forwarding.Request[m.GetInstalledCertificateIdsRequest],
			info *m.StatusInfo) m.GetInstalledCertificateIdsResponse {

			return m.GetInstalledCertificateIdsResponse{
				Status:     m.GetInstalledCertificateNotFound,
				StatusInfo: info,
			}
		},
	)); err != nil {
		return nil, err
	}
	if h.InstallCertificate, err = forwarding.Register(a, operation(
		m.ActionInstallCertificate, true,
		func(_ *forwarding.Request[m.InstallCertificateRequest],
			info *m.StatusInfo) m.InstallCertificateResponse {

			return m.InstallCertificateResponse{
				Status:     m.InstallCertificateRejected,
				StatusInfo: info,
			}
		},
	)); err != nil {
		return nil, err
	}
	if h.NotifyCRL, err = forwarding.Register(a, operation(
		m.ActionNotifyCRL, false,
		// NotifyCRLResponse has no status to reject with.
		func(*forwarding.Request[m.NotifyCRLRequest], *m.StatusInfo) m.NotifyCRLResponse {
			return m.NotifyCRLResponse{}
		},
	)); err != nil {
		return nil, err
	}
	if h.SignCertificate, err = forwarding.Register(a, operation(
		m.ActionSignCertificate, false,
		func(_ *forwarding.Request[m.SignCertificateRequest],
			info *m.StatusInfo) m.SignCertificateResponse {

			return m.SignCertificateResponse{Status: m.GenericStatusRejected, StatusInfo: info}
		},
	)); err != nil {
		return nil, err
	}
	return &h, nil
}

func operation[Req, Resp any](
	action string,
	allowBinary bool,
	reject func(*forwarding.Request[Req], *m.StatusInfo) Resp,
) forwarding.Operation[Req, Resp] {

	return forwarding.Operation[Req, Resp]{
		Action:      action,
		AllowBinary: allowBinary,
		RejectResponse: func(req *forwarding.Request[Req], reason string) Resp {
			return reject(req, statusInfo(reason))
		},
		ErrorCode: ErrorCode,
	}
}

func statusInfo(reason string) *m.StatusInfo {
	if len(reason) > maxAdditionalInfo {
		reason = reason[:maxAdditionalInfo]
	}
	return &m.StatusInfo{ReasonCode: ReasonCode, AdditionalInfo: reason}
}

// ErrorCode classifies payload errors into CALLERROR codes.
func ErrorCode(err error) envelope.ErrorCode {
	switch {
	case errors.Is(err, m.ErrMissingField):
		return envelope.OccurrenceConstraintViolation
	case errors.Is(err, m.ErrInvalidValue), errors.Is(err, m.ErrTooLong):
		return envelope.PropertyConstraintViolation
	default:
		return forwarding.ClassifyJSONError(err)
	}
}
