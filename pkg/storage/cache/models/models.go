package models

import "time"

type Counter struct {
	Count     int64
	ExpiresAt time.Time
}
