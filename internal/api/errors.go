/*
Copyright © 2025 Peyvandyar authors.

Released under MIT license.
*/

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/mjsoltani/peyvandyar/gateway"
	"github.com/mjsoltani/peyvandyar/httpserver"
	"github.com/mjsoltani/peyvandyar/log"
	"github.com/mjsoltani/peyvandyar/restapi"
)

// Error codes specific to the API.
const (
	ErrCodeInvalidParameter = "invalidParameter"
	ErrCodeGatewayStopped   = "gatewayStopped"
)

// Context keys of error responses.
const (
	errContextDetails        = "details"
	errContextUpstreamStatus = "upstreamStatus"
	errContextKind           = "kind"
)

func respondInvalidParam(rw http.ResponseWriter, err error, logger log.FieldLogger) {
	apiErr := restapi.NewError(ErrorDomain, ErrCodeInvalidParameter, err.Error())
	restapi.RespondError(rw, http.StatusBadRequest, apiErr, logger)
}

// respondGatewayError maps a gateway failure to an HTTP response.
// Client errors keep the upstream status, upstream and transport errors become 502,
// local admission failures and a stopped gateway become 503.
func respondGatewayError(rw http.ResponseWriter, err error, logger log.FieldLogger) {
	if errors.Is(err, context.Canceled) {
		logger.Info("request canceled by the client while waiting for the product API")
		rw.WriteHeader(httpserver.StatusClientClosedRequest)
		return
	}
	if errors.Is(err, gateway.ErrStopped) {
		apiErr := restapi.NewError(ErrorDomain, ErrCodeGatewayStopped, "Product gateway is stopped.")
		restapi.RespondError(rw, http.StatusServiceUnavailable, apiErr, logger)
		return
	}

	var gwErr *gateway.Error
	if !errors.As(err, &gwErr) {
		logger.Error("unexpected product gateway error", log.Error(err))
		restapi.RespondInternalError(rw, ErrorDomain, logger)
		return
	}

	status := http.StatusBadGateway
	switch gwErr.Kind {
	case gateway.KindClient:
		status = gwErr.StatusCode
		if status == 0 {
			status = http.StatusBadRequest
		}
	case gateway.KindRateExceeded:
		status = http.StatusServiceUnavailable
	}

	apiErr := restapi.NewErrorForStatus(ErrorDomain, status, gwErr.Message).
		AddContext(errContextKind, string(gwErr.Kind))
	if gwErr.Details != "" {
		apiErr.AddContext(errContextDetails, gwErr.Details)
	}
	if gwErr.StatusCode != 0 && gwErr.StatusCode != status {
		apiErr.AddContext(errContextUpstreamStatus, gwErr.StatusCode)
	}
	restapi.RespondError(rw, status, apiErr, logger)
}
