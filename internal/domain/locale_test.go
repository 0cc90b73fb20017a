package domain

import (
	"testing"
	"time"
)

func TestFold(t *testing.T) {
	tests := map[string]string{
		"Março":             "marco",
		"CARTÃO DE CRÉDITO": "cartao de credito",
		"Pgto Água":         "pgto agua",
		"plain":             "plain",
	}
	for in, want := range tests {
		if got := Fold(in); got != want {
			t.Errorf("Fold(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestContainsFold(t *testing.T) {
	if !ContainsFold("Pgto Luz - MARÇO", "marco") {
		t.Error("expected match ignoring case and accents")
	}
	if ContainsFold("Pgto Luz - Abril", "março") {
		t.Error("unexpected match")
	}
}

func TestLocaleFor(t *testing.T) {
	if got := LocaleFor("en-GB").MonthName(time.May); got != "may" {
		t.Errorf("en-GB May = %q", got)
	}
	if got := LocaleFor("pt-BR").MonthTitle(time.March); got != "Março" {
		t.Errorf("pt-BR March = %q", got)
	}
	if got := LocaleFor("not a tag!").MonthName(time.January); got != "janeiro" {
		t.Errorf("fallback January = %q", got)
	}
}
