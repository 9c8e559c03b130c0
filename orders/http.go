package orders

import (
	"encoding/json"
	"net/http"
)

// CreateHandler exposes order creation as an HTTP endpoint: POST with no
// body, 201 with the created order as JSON. A failed publish surfaces as
// 502; downstream choreography failures never reach this endpoint.
func (s *Service) CreateHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)

			return
		}

		order, err := s.CreateOrder(r.Context())
		if err != nil {
			s.logger.ErrorContext(r.Context(), "order create failed", "err", err)
			http.Error(w, "order could not be accepted", http.StatusBadGateway)

			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(order)
	})
}
