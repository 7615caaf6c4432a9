package service

import (
	"practice/internal/model"

	"github.com/shopspring/decimal"
)

// CatalogueService serves the public consultation catalogue of the booking page.
type CatalogueService interface {
	List() []model.Offering
	Get(slug string) (model.Offering, bool)
}

type catalogueService struct {
	offerings []model.Offering
}

// DefaultOfferings is the catalogue the booking page lists.
func DefaultOfferings() []model.Offering {
	return []model.Offering{
		{
			Slug:            "neurodiversity",
			Title:           "Neurodiversity Consultation",
			Summary:         "Assessment support and practical strategies for neurodivergent adults.",
			DurationMinutes: 60,
			Fee:             decimal.RequireFromString("120.00"),
		},
		{
			Slug:            "digital-evolution",
			Title:           "Digital Evolution Coaching",
			Summary:         "Healthy habits around screens, work tools and digital overload.",
			DurationMinutes: 45,
			Fee:             decimal.RequireFromString("85.00"),
		},
		{
			Slug:            "executive-mentoring",
			Title:           "Executive Mentoring",
			Summary:         "One-to-one mentoring for leaders managing pressure and change.",
			DurationMinutes: 90,
			Fee:             decimal.RequireFromString("180.00"),
		},
		{
			Slug:            "psychological-therapy",
			Title:           "Psychological Therapy",
			Summary:         "Evidence-based talking therapy sessions.",
			DurationMinutes: 50,
			Fee:             decimal.RequireFromString("95.50"),
		},
	}
}

// NewCatalogueService returns a catalogue over offerings, or DefaultOfferings when nil.
func NewCatalogueService(offerings []model.Offering) CatalogueService {
	if offerings == nil {
		offerings = DefaultOfferings()
	}
	return &catalogueService{offerings: offerings}
}

func (s *catalogueService) List() []model.Offering {
	out := make([]model.Offering, len(s.offerings))
	copy(out, s.offerings)
	return out
}

func (s *catalogueService) Get(slug string) (model.Offering, bool) {
	for _, o := range s.offerings {
		if o.Slug == slug {
			return o, true
		}
	}
	return model.Offering{}, false
}
