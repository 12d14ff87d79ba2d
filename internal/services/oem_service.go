package services

import (
	"context"
	"errors"

	"github.com/hawksec/hawk/internal/domain/oem"
	"github.com/hawksec/hawk/internal/gateway"
	apperrors "github.com/hawksec/hawk/internal/pkg/errors"
	"github.com/hawksec/hawk/internal/pkg/logger"
	"github.com/hawksec/hawk/internal/pkg/validator"
)

// oemSearchLimit is how many findings a vendor search returns
const oemSearchLimit = 5

// OEMService manages the vendor advisory sources of one user
type OEMService struct {
	repo      oem.Repository
	functions FunctionInvoker
	userID    string
	logger    *logger.Logger
}

// NewOEMService creates an OEM service bound to userID
func NewOEMService(repo oem.Repository, functions FunctionInvoker, userID string, log *logger.Logger) *OEMService {
	return &OEMService{
		repo:      repo,
		functions: functions,
		userID:    userID,
		logger:    log,
	}
}

// List returns the user's sources, newest first
func (s *OEMService) List(ctx context.Context) ([]*oem.Source, error) {
	return s.repo.List(ctx, s.userID)
}

// Add validates and stores a new active source
func (s *OEMService) Add(ctx context.Context, in oem.CreateInput) (*oem.Source, error) {
	if err := validator.Check(in); err != nil {
		return nil, apperrors.ValidationError("Invalid OEM source", err)
	}
	in.URL = oem.NormalizeURL(in.URL)

	src, err := s.repo.Create(ctx, s.userID, in)
	if err != nil {
		s.logger.ErrorWithErr(err, "Failed to add OEM source")
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"source_id": src.ID,
		"name":      src.Name,
		"user_id":   s.userID,
	}).Info("OEM source added")
	return src, nil
}

// Update applies a partial update to one source
func (s *OEMService) Update(ctx context.Context, id string, in oem.UpdateInput) (*oem.Source, error) {
	if in.IsEmpty() {
		return nil, apperrors.BadRequest("Nothing to update")
	}
	if err := validator.Check(in); err != nil {
		return nil, apperrors.ValidationError("Invalid OEM source", err)
	}
	if in.URL != nil {
		u := oem.NormalizeURL(*in.URL)
		in.URL = &u
	}

	src, err := s.repo.Update(ctx, s.userID, id, in)
	if err != nil {
		s.logger.WithFields(map[string]interface{}{"source_id": id}).ErrorWithErr(err, "Failed to update OEM source")
		return nil, err
	}
	return src, nil
}

// Delete removes one source
func (s *OEMService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, s.userID, id); err != nil {
		s.logger.WithFields(map[string]interface{}{"source_id": id}).ErrorWithErr(err, "Failed to delete OEM source")
		return err
	}
	return nil
}

// Test runs a trial scrape of src. A scrape the function reports as
// failed comes back as an unsuccessful TestResult, not an error.
func (s *OEMService) Test(ctx context.Context, src *oem.Source) (*oem.TestResult, error) {
	body := map[string]interface{}{
		"url":         src.URL,
		"name":        src.Name,
		"system_type": src.SystemType,
	}

	var result oem.TestResult
	err := s.functions.Invoke(ctx, FnTestOEMScraper, body, &result)
	if err != nil {
		if rf, ok := asRemoteFunction(err); ok {
			msg := rf.Message
			if msg == "" {
				msg = "Unknown error"
			}
			return &oem.TestResult{Success: false, Error: msg}, nil
		}
		s.logger.WithFields(map[string]interface{}{"source_id": src.ID}).ErrorWithErr(err, "Failed to test OEM source")
		return nil, err
	}
	return &result, nil
}

// TestByID looks up one of the user's sources and tests it
func (s *OEMService) TestByID(ctx context.Context, id string) (*oem.TestResult, error) {
	sources, err := s.repo.List(ctx, s.userID)
	if err != nil {
		return nil, err
	}
	for _, src := range sources {
		if src.ID == id {
			return s.Test(ctx, src)
		}
	}
	return nil, apperrors.NotFound("OEM source")
}

// Search asks the scraper for recent vulnerabilities of a vendor
func (s *OEMService) Search(ctx context.Context, name string) ([]oem.Vulnerability, error) {
	if name == "" {
		return nil, apperrors.BadRequest("Search query is required")
	}
	var resp struct {
		Results []oem.Vulnerability `json:"results"`
	}
	body := map[string]interface{}{"query": name, "limit": oemSearchLimit}
	if err := s.functions.Invoke(ctx, FnRealTimeScraper, body, &resp); err != nil {
		s.logger.WithFields(map[string]interface{}{"query": name}).ErrorWithErr(err, "Failed to search vendor vulnerabilities")
		return nil, err
	}
	if resp.Results == nil {
		resp.Results = []oem.Vulnerability{}
	}
	return resp.Results, nil
}

func asRemoteFunction(err error) (*gateway.RemoteFunctionError, bool) {
	var rf *gateway.RemoteFunctionError
	if errors.As(err, &rf) {
		return rf, true
	}
	return nil, false
}
