package domain

import (
	"time"
)

// Entry is one durable ledger record. Once stored it is immutable except for
// the three linking fields (LinkedID, IsMatched, LastLinkedAt), which are set
// at most once: the first accepted match wins and is never re-evaluated.
type Entry struct {
	ID int64

	TransactionDate time.Time
	Amount          float64 // negative = outflow, positive = inflow
	Currency        string  // ISO-like 3-letter code, default USD
	MerchantName    string  // never empty, never a generic placeholder

	DocumentType DocumentType
	SourcePath   string
	RawText      string

	Schema Schema

	LinkedID  *int64
	IsMatched bool

	BatchID string

	CreatedAt    time.Time
	LastLinkedAt *time.Time
}

// NewEntry assembles an unstored entry from its normalized parts. The ledger
// assigns ID and CreatedAt on insert and parses TransactionDate from its
// accepted-format list.
type NewEntry struct {
	TransactionDate string
	Amount          float64
	Currency        string
	MerchantName    string
	DocumentType    DocumentType
	SourcePath      string
	RawText         string
	Schema          Schema
	BatchID         string
}
