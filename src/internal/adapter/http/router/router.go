package router

import "net/http"

type BalanceRouteRegistrar interface {
	RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler)
}

type ConversionRouteRegistrar interface {
	RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler)
}

type RateRouteRegistrar interface {
	RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler)
}

type HealthRouteRegistrar interface {
	RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler)
}

func New(
	balanceController BalanceRouteRegistrar,
	conversionController ConversionRouteRegistrar,
	rateController RateRouteRegistrar,
	healthController HealthRouteRegistrar,
	authMiddleware func(http.Handler) http.Handler,
) *http.ServeMux {
	mux := http.NewServeMux()

	if balanceController != nil {
		balanceController.RegisterRoutes(mux, authMiddleware)
	}
	if conversionController != nil {
		conversionController.RegisterRoutes(mux, authMiddleware)
	}
	if rateController != nil {
		rateController.RegisterRoutes(mux, authMiddleware)
	}
	if healthController != nil {
		healthController.RegisterRoutes(mux, authMiddleware)
	}

	return mux
}
