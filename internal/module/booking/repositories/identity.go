package repositories

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"bed-booking-service/config"
	"bed-booking-service/internal/module/booking/models/response"
	"bed-booking-service/internal/pkg/errors"
	"bed-booking-service/internal/pkg/log"

	"github.com/goccy/go-json"
	circuit "github.com/rubyist/circuitbreaker"
)

// Identity resolves staff tokens against the user service.
type Identity interface {
	ValidateToken(ctx context.Context, token string) (response.UserServiceValidate, error)
}

type identity struct {
	log            log.Logger
	httpClient     *circuit.HTTPClient
	cfgUserService *config.UserServiceConfig
}

func NewIdentity(log log.Logger, httpClient *circuit.HTTPClient, cfgUserService *config.UserServiceConfig) Identity {
	return &identity{
		log:            log,
		httpClient:     httpClient,
		cfgUserService: cfgUserService,
	}
}

// ValidateToken implements Identity.
func (i *identity) ValidateToken(ctx context.Context, token string) (response.UserServiceValidate, error) {
	endpoint := fmt.Sprintf("http://%s:%s/api/private/token/validate?token=%s",
		i.cfgUserService.Host, i.cfgUserService.Port, url.QueryEscape(token))

	resp, err := i.httpClient.Get(endpoint)
	if err != nil {
		i.log.Error(ctx, "error calling user service", err)
		return response.UserServiceValidate{}, errors.InternalServerError("error validating token")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		i.log.Warn(ctx, "invalid token", resp.StatusCode)
		return response.UserServiceValidate{}, errors.UnauthorizedError("invalid token")
	}

	var respData response.UserServiceValidate
	if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
		return response.UserServiceValidate{}, errors.InternalServerError("error decoding user service response")
	}

	if !respData.IsValid {
		return response.UserServiceValidate{}, errors.UnauthorizedError("invalid token")
	}

	return respData, nil
}
