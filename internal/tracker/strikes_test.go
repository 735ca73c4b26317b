package tracker

import (
	"reflect"
	"testing"
)

func TestATMStrike(t *testing.T) {
	cases := []struct {
		price, step, want float64
	}{
		{22155, 50, 22150},
		{22180, 50, 22200},
		{22175, 50, 22200}, // midpoint rounds up
		{22150, 50, 22150},
		{47463, 100, 47500},
		{47449, 100, 47400},
	}
	for _, tc := range cases {
		if got := ATMStrike(tc.price, tc.step); got != tc.want {
			t.Errorf("ATMStrike(%g, %g) = %g, want %g", tc.price, tc.step, got, tc.want)
		}
	}
}

func TestBand(t *testing.T) {
	got := Band(22150, 50, 3)
	want := []float64{22000, 22050, 22100, 22150, 22200, 22250, 22300}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Band = %v, want %v", got, want)
	}
}

func TestClipToUniverse(t *testing.T) {
	band := Band(22150, 50, 3)

	t.Run("full chain keeps the whole band", func(t *testing.T) {
		known := Band(22150, 50, 10)
		got := ClipToUniverse(band, known)
		if !reflect.DeepEqual(got, band) {
			t.Fatalf("got %v, want %v", got, band)
		}
	})

	t.Run("chain edge yields a short band", func(t *testing.T) {
		// Chain ends at 22200; the upper band strikes are unlisted
		known := []float64{22000, 22050, 22100, 22150, 22200}
		got := ClipToUniverse(band, known)
		want := []float64{22000, 22050, 22100, 22150, 22200}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("got %v, want %v", got, want)
		}
	})

	t.Run("order is preserved", func(t *testing.T) {
		known := []float64{22300, 22000, 22150}
		got := ClipToUniverse(band, known)
		want := []float64{22000, 22150, 22300}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("got %v, want %v", got, want)
		}
	})
}
