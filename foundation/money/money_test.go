package money_test

import (
	"testing"

	"github.com/dinarlabs/ledger/foundation/money"
	"github.com/shopspring/decimal"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// =============================================================================

func Test_Parse(t *testing.T) {
	type table struct {
		name    string
		input   string
		want    string
		wantErr bool
	}

	tt := []table{
		{name: "whole", input: "100", want: "100.00000000"},
		{name: "fraction", input: "25.5", want: "25.50000000"},
		{name: "eightplaces", input: "0.00000001", want: "0.00000001"},
		{name: "negative", input: "-3.25", want: "-3.25000000"},
		{name: "zero", input: "0", want: "0.00000000"},
		{name: "nineplaces", input: "0.000000001", wantErr: true},
		{name: "garbage", input: "ten coins", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	t.Log("Given the need to parse amounts from decimal strings.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen parsing %q.", testID, tst.input)
			{
				d, err := money.Parse(tst.input)

				if tst.wantErr {
					if err == nil {
						t.Fatalf("\t%s\tTest %d:\tShould reject the value.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould reject the value.", success, testID)
					continue
				}

				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to parse the value: %v", failed, testID, err)
				}
				t.Logf("\t%s\tTest %d:\tShould be able to parse the value.", success, testID)

				if got := money.Format(d); got != tst.want {
					t.Fatalf("\t%s\tTest %d:\tShould format as %q, got %q.", failed, testID, tst.want, got)
				}
				t.Logf("\t%s\tTest %d:\tShould format as %q.", success, testID, tst.want)
			}
		}
	}
}

func Test_Format(t *testing.T) {
	t.Log("Given the need for one canonical rendering per amount.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen formatting amounts that are numerically equal.", testID)
		{
			a := money.MustParse("7.5")
			b := money.MustParse("7.50000000")

			if money.Format(a) != money.Format(b) {
				t.Fatalf("\t%s\tTest %d:\tShould render equal amounts identically: %q vs %q.", failed, testID, money.Format(a), money.Format(b))
			}
			t.Logf("\t%s\tTest %d:\tShould render equal amounts identically.", success, testID)

			if got, want := money.Format(a), "7.50000000"; got != want {
				t.Fatalf("\t%s\tTest %d:\tShould carry exactly eight fractional digits: got %q.", failed, testID, got)
			}
			t.Logf("\t%s\tTest %d:\tShould carry exactly eight fractional digits.", success, testID)
		}
	}
}

func Test_Round(t *testing.T) {
	t.Log("Given the need to truncate derived amounts toward zero.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen rounding a positive repeating fraction.", testID)
		{
			third := decimal.NewFromInt(1).Div(decimal.NewFromInt(3))

			if got, want := money.Format(money.Round(third)), "0.33333333"; got != want {
				t.Fatalf("\t%s\tTest %d:\tShould truncate to %q, got %q.", failed, testID, want, got)
			}
			t.Logf("\t%s\tTest %d:\tShould truncate and never round up.", success, testID)
		}

		testID = 1
		t.Logf("\tTest %d:\tWhen rounding a negative repeating fraction.", testID)
		{
			third := decimal.NewFromInt(-1).Div(decimal.NewFromInt(3))

			if got, want := money.Format(money.Round(third)), "-0.33333333"; got != want {
				t.Fatalf("\t%s\tTest %d:\tShould truncate toward zero to %q, got %q.", failed, testID, want, got)
			}
			t.Logf("\t%s\tTest %d:\tShould truncate toward zero.", success, testID)
		}

		testID = 2
		t.Logf("\tTest %d:\tWhen rounding a value already at eight places.", testID)
		{
			v := money.MustParse("12.12345678")

			if !money.Round(v).Equal(v) {
				t.Fatalf("\t%s\tTest %d:\tShould leave the value untouched.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould leave the value untouched.", success, testID)
		}
	}
}
