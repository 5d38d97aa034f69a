package trunc

import "testing"

func TestValidate(t *testing.T) {
	for _, test := range []struct {
		name    string
		v       Value
		wantErr bool
	}{
		{name: "fraction ok", v: Fraction(0.99), wantErr: false},
		{name: "fraction at 1", v: Fraction(1.0), wantErr: false},
		{name: "fraction zero", v: Fraction(0), wantErr: true},
		{name: "fraction above 1", v: Fraction(1.01), wantErr: true},
		{name: "dimension ok", v: Dimension(5), wantErr: false},
		{name: "dimension zero", v: Dimension(0), wantErr: true},
		{name: "dimension negative", v: Dimension(-1), wantErr: true},
	} {
		err := test.v.Validate()
		if (err != nil) != test.wantErr {
			t.Errorf("%s: Validate() error = %v, wantErr %v", test.name, err, test.wantErr)
		}
	}
}

func TestAccessorsSentinel(t *testing.T) {
	f := Fraction(0.5)
	if got := f.AsDimension(); got != -1 {
		t.Errorf("Fraction(0.5).AsDimension() = %d, want -1", got)
	}
	if got := f.AsFraction(); got != 0.5 {
		t.Errorf("Fraction(0.5).AsFraction() = %v, want 0.5", got)
	}

	d := Dimension(3)
	if got := d.AsFraction(); got != -1 {
		t.Errorf("Dimension(3).AsFraction() = %v, want -1", got)
	}
	if got := d.AsDimension(); got != 3 {
		t.Errorf("Dimension(3).AsDimension() = %d, want 3", got)
	}
}

func TestRankDimension(t *testing.T) {
	sv := []float64{10, 5, 1, 0.1}
	for _, test := range []struct {
		k    int
		want int
	}{
		{k: 2, want: 2},
		{k: 4, want: 4},
		{k: 10, want: 4},
	} {
		if got := Dimension(test.k).Rank(sv); got != test.want {
			t.Errorf("Dimension(%d).Rank(%v) = %d, want %d", test.k, sv, got, test.want)
		}
	}
}

func TestRankFraction(t *testing.T) {
	// energies: 100, 25, 4 -> total 129
	sv := []float64{10, 5, 2}
	for _, test := range []struct {
		f    float64
		want int
	}{
		{f: 1.0, want: 3},
		{f: 100.0 / 129.0, want: 1},
		{f: 125.0 / 129.0, want: 2},
	} {
		if got := Fraction(test.f).Rank(sv); got != test.want {
			t.Errorf("Fraction(%v).Rank(%v) = %d, want %d", test.f, sv, got, test.want)
		}
	}
}

func TestRankEmpty(t *testing.T) {
	if got := Fraction(0.99).Rank(nil); got != 0 {
		t.Errorf("Rank(nil) = %d, want 0", got)
	}
}
