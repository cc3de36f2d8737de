package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/mmeshcher/foodie-express/internal/model"
	"github.com/mmeshcher/foodie-express/internal/repository"
)

var availableLocations = []model.Location{
	{ID: "surat", Name: "Surat", State: "Gujarat"},
	{ID: "mumbai", Name: "Mumbai", State: "Maharashtra"},
	{ID: "delhi", Name: "Delhi", State: "Delhi"},
	{ID: "bangalore", Name: "Bangalore", State: "Karnataka"},
	{ID: "hyderabad", Name: "Hyderabad", State: "Telangana"},
	{ID: "chennai", Name: "Chennai", State: "Tamil Nadu"},
	{ID: "kolkata", Name: "Kolkata", State: "West Bengal"},
	{ID: "pune", Name: "Pune", State: "Maharashtra"},
	{ID: "ahmedabad", Name: "Ahmedabad", State: "Gujarat"},
	{ID: "jaipur", Name: "Jaipur", State: "Rajasthan"},
}

func locationKey(identity string) repository.Key {
	return repository.Key{Namespace: repository.NamespaceLocation, Identity: identity}
}

// Locations возвращает регионы доставки.
func (s *Service) Locations() []model.Location {
	return append([]model.Location(nil), availableLocations...)
}

func findLocation(id string) (model.Location, bool) {
	for _, l := range availableLocations {
		if l.ID == id {
			return l, true
		}
	}
	return model.Location{}, false
}

// CurrentLocation возвращает выбранный регион. Без выбора или при ошибке чтения возвращается первый регион списка.
func (s *Service) CurrentLocation(ctx context.Context, identity string) model.Location {
	var saved model.Location
	found, err := repository.GetJSON(ctx, s.store, locationKey(identity), &saved)
	if err != nil {
		s.logger.Warn("load current location", zap.String("identity", identity), zap.Error(err))
	}
	if found {
		if l, ok := findLocation(saved.ID); ok {
			return l
		}
	}
	return availableLocations[0]
}

// SetLocation сохраняет выбранный регион.
func (s *Service) SetLocation(ctx context.Context, identity, locationID string) (model.Location, error) {
	l, ok := findLocation(locationID)
	if !ok {
		return model.Location{}, ErrUnknownLocation
	}
	if err := repository.PutJSON(ctx, s.store, locationKey(identity), l); err != nil {
		return model.Location{}, err
	}
	return l, nil
}
