package cache

import (
	"context"
	"time"
)

const (
	VehicleKeyPrefix = "vehicle:"
	RevokedKeyPrefix = "revoked:"
)

const (
	VehicleTTL = 2 * time.Minute
)

func VehicleKey(vehicleID string) string {
	return VehicleKeyPrefix + vehicleID
}

// RevokedTokenKey marks a logged-out token id.
func RevokedTokenKey(jti string) string {
	return RevokedKeyPrefix + jti
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateVehicle(ctx context.Context, vehicleID string) {
	Invalidate(ctx, VehicleKey(vehicleID))
}
