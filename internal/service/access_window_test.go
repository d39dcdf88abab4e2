package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var kst = time.FixedZone("UTC+9", 9*60*60)

func at(s string) time.Time {
	t, err := time.ParseInLocation("2006-01-02 15:04", s, kst)
	if err != nil {
		panic(err)
	}
	return t
}

func TestValidWindow(t *testing.T) {
	bob := AccessWindow{DateFrom: "2024-01-01", DateTo: "2024-12-31", HourFrom: 9, HourTo: 18}

	tests := []struct {
		name string
		now  time.Time
		w    AccessWindow
		want bool
	}{
		{"inside hours", at("2024-06-01 10:00"), bob, true},
		{"first allowed hour", at("2024-06-01 09:00"), bob, true},
		{"last allowed hour", at("2024-06-01 17:59"), bob, true},
		{"hour_to is exclusive", at("2024-06-01 18:00"), bob, false},
		{"evening", at("2024-06-01 20:00"), bob, false},
		{"before hour_from", at("2024-06-01 08:59"), bob, false},
		{"date_to is inclusive", at("2024-12-31 10:00"), bob, true},
		{"day after date_to", at("2025-01-01 10:00"), bob, false},
		{"before date_from", at("2023-12-31 10:00"), bob, false},
		{"zero hours mean all day", at("2024-06-01 03:00"), AccessWindow{DateFrom: "2024-01-01", DateTo: "2024-12-31"}, true},
		{"midnight on date_from", at("2024-01-01 00:00"), AccessWindow{DateFrom: "2024-01-01", DateTo: "2024-01-01"}, true},
		{"last minute of date_to", at("2024-01-01 23:59"), AccessWindow{DateFrom: "2024-01-01", DateTo: "2024-01-01"}, true},
		{"unbounded dates", at("2030-01-01 12:00"), AccessWindow{DateFrom: "0000-00-00", DateTo: "0000-00-00"}, true},
		{"empty dates", at("2030-01-01 12:00"), AccessWindow{}, true},
		{"unbounded start only", at("1999-01-01 12:00"), AccessWindow{DateFrom: "0000-00-00", DateTo: "2024-01-01"}, true},
		{"malformed date fails closed", at("2024-06-01 10:00"), AccessWindow{DateFrom: "2024/01/01", DateTo: "2024-12-31"}, false},
		{"hour_to 24 covers the last hour", at("2024-06-01 23:30"), AccessWindow{HourFrom: 0, HourTo: 24}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidWindow(tt.now, kst, tt.w))
		})
	}
}

func TestValidWindow_ConvertsToFixedOffset(t *testing.T) {
	w := AccessWindow{DateFrom: "2024-06-01", DateTo: "2024-06-01", HourFrom: 9, HourTo: 18}

	// 2024-06-01 01:00 UTC 即 UTC+9 的 10:00
	assert.True(t, ValidWindow(time.Date(2024, 6, 1, 1, 0, 0, 0, time.UTC), kst, w))
	// 2024-05-31 23:00 UTC 即 UTC+9 的 06-01 08:00，时段外
	assert.False(t, ValidWindow(time.Date(2024, 5, 31, 23, 0, 0, 0, time.UTC), kst, w))
	// 2024-06-01 15:00 UTC 已是 UTC+9 的 06-02
	assert.False(t, ValidWindow(time.Date(2024, 6, 1, 15, 0, 0, 0, time.UTC), kst, w))
}

func TestAccessWindow_Validate(t *testing.T) {
	valid := []AccessWindow{
		{DateFrom: "2024-01-01", DateTo: "2024-12-31", HourFrom: 9, HourTo: 18},
		{DateFrom: "0000-00-00", DateTo: "0000-00-00"},
		{DateFrom: "2024-01-01", DateTo: "2024-01-01", HourFrom: 0, HourTo: 24},
	}
	for _, w := range valid {
		assert.NoError(t, w.Validate(), "%+v", w)
	}

	invalid := []AccessWindow{
		{DateFrom: "2024-13-01", DateTo: "2024-12-31"},
		{DateFrom: "2024-01-01", DateTo: "tomorrow"},
		{DateFrom: "2024-12-31", DateTo: "2024-01-01"},
		{HourFrom: -1, HourTo: 5},
		{HourFrom: 24, HourTo: 24},
		{HourFrom: 9, HourTo: 25},
		{HourFrom: 18, HourTo: 9},
		{HourFrom: 9, HourTo: 9},
	}
	for _, w := range invalid {
		err := w.Validate()
		assert.True(t, errors.Is(err, ErrValidationFailed), "%+v", w)
	}
}
