package httpclient

import (
	"net/http"

	"bed-booking-service/config"

	circuit "github.com/rubyist/circuitbreaker"
)

func InitCircuitBreaker(cfg *config.HttpClientConfig, cbType string) *circuit.Breaker {
	switch cbType {
	case "threshold":
		return circuit.NewThresholdBreaker(cfg.Threshold)
	case "rate":
		return circuit.NewRateBreaker(cfg.Rate, cfg.MinSamples)
	default:
		return circuit.NewConsecutiveBreaker(cfg.Threshold)
	}
}

func InitHttpClient(cfg *config.HttpClientConfig, cb *circuit.Breaker) *circuit.HTTPClient {
	return circuit.NewHTTPClientWithBreaker(cb, cfg.Timeout, &http.Client{})
}
