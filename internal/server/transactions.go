package server

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/ArionMiles/spendwise/pkg/api"
	"github.com/ArionMiles/spendwise/pkg/importer"
)

// transactionBody accepts transaction_time with or without a zone.
type transactionBody struct {
	Origin          api.Origin       `json:"origin"`
	RawText         string           `json:"raw_text"`
	Amount          *decimal.Decimal `json:"amount"`
	Currency        string           `json:"currency"`
	Merchant        string           `json:"merchant"`
	Category        string           `json:"category"`
	TransactionTime string           `json:"transaction_time"`
}

type batchBody struct {
	Messages []api.SMSMessage `json:"messages"`
}

var timeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTime reads RFC 3339 or a zoneless local time in loc. Empty is zero.
func parseTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognized time %q", api.ErrInvalidRequest, s)
}

func (s *Server) listTransactions(c *fiber.Ctx) error {
	owner, err := ownerID(c)
	if err != nil {
		return err
	}

	var period api.Period
	if period.From, err = parseTime(c.Query("from"), s.cfg.Location); err != nil {
		return err
	}
	if period.To, err = parseTime(c.Query("to"), s.cfg.Location); err != nil {
		return err
	}

	txns, err := s.deps.Transactions.ListTransactions(c.UserContext(), owner, period)
	if err != nil {
		return err
	}
	if txns == nil {
		txns = []api.Transaction{}
	}
	return c.JSON(txns)
}

func (s *Server) createTransaction(c *fiber.Ctx) error {
	owner, err := ownerID(c)
	if err != nil {
		return err
	}

	var body transactionBody
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	when, err := parseTime(body.TransactionTime, s.cfg.Location)
	if err != nil {
		return err
	}

	txn, err := s.deps.Classifier.Classify(c.UserContext(), owner, api.TransactionRequest{
		Origin:          body.Origin,
		RawText:         body.RawText,
		Amount:          body.Amount,
		Currency:        body.Currency,
		Merchant:        body.Merchant,
		Category:        body.Category,
		TransactionTime: when,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(txn)
}

func (s *Server) processBatch(c *fiber.Ctx) error {
	owner, err := ownerID(c)
	if err != nil {
		return err
	}

	var body batchBody
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}

	result, err := s.deps.Batch.ProcessBatch(c.UserContext(), owner, body.Messages)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

func (s *Server) createSampleData(c *fiber.Ctx) error {
	owner, err := ownerID(c)
	if err != nil {
		return err
	}

	n := s.deps.Classifier.Seed(c.UserContext(), owner, s.cfg.Now().In(s.cfg.Location))
	return c.JSON(fiber.Map{"message": "Sample data created successfully!", "created": n})
}

func (s *Server) uploadMessages(c *fiber.Ctx) error {
	owner, err := ownerID(c)
	if err != nil {
		return err
	}

	format, err := importer.ParseFormat(c.Params("format"))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}

	header, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "missing file")
	}
	f, err := header.Open()
	if err != nil {
		return fmt.Errorf("opening upload: %w", err)
	}
	defer f.Close()

	msgs, err := s.deps.Importer.Import(f, format)
	if err != nil {
		if errors.Is(err, api.ErrInvalidRequest) {
			return err
		}
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	result, err := s.deps.Batch.ProcessBatch(c.UserContext(), owner, msgs)
	if err != nil {
		return err
	}
	return c.JSON(result)
}
