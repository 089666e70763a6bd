package services

import (
	"sync"
	"time"

	"minewatch/models"

	"go.uber.org/zap"
)

// HelmetStore is the registry of last-known helmet state. It is created empty
// at session start and owned by the session; the router and the operator
// command surface are the only writers.
type HelmetStore struct {
	logger *zap.Logger

	mu         sync.RWMutex
	helmets    map[string]*models.HelmetDevice
	active     []string
	selectedID string
}

func NewHelmetStore(logger *zap.Logger) *HelmetStore {
	return &HelmetStore{
		logger:  logger,
		helmets: make(map[string]*models.HelmetDevice),
	}
}

// getOrCreateLocked returns the record for helmetID, creating it on first
// reference. Callers hold s.mu.
func (s *HelmetStore) getOrCreateLocked(helmetID string) *models.HelmetDevice {
	helmet, exists := s.helmets[helmetID]
	if !exists {
		helmet = &models.HelmetDevice{
			HelmetID: helmetID,
			Status:   models.HelmetUnknown,
		}
		s.helmets[helmetID] = helmet
		s.logger.Info("New helmet registered", zap.String("helmet_id", helmetID))
	}
	return helmet
}

// ApplyTelemetry merges one telemetry payload into the registry. The device
// record is merged field by field, but the sensor snapshot replaces the
// previous one wholesale so readings from different sample times never mix.
func (s *HelmetStore) ApplyTelemetry(data *models.TelemetryPayload) {
	if data.HelmetID == "" {
		s.logger.Warn("Dropping telemetry without helmet id")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	helmet := s.getOrCreateLocked(data.HelmetID)

	snapshot := data.Sensors
	snapshot.Battery = data.Battery
	helmet.Sensors = &snapshot

	if data.GPS != nil {
		location := *data.GPS
		helmet.Location = &location
	}
	if len(data.Cracks) > 0 {
		helmet.Cracks = append(helmet.Cracks, data.Cracks...)
	}
	helmet.Status = models.HelmetActive
	helmet.LastUpdated = time.Now()
}

// SetStatus merges an explicit status push into the named helmet. A zero
// lastSeen leaves the previous value in place.
func (s *HelmetStore) SetStatus(helmetID string, status models.HelmetStatus, lastSeen time.Time) {
	if helmetID == "" {
		s.logger.Warn("Dropping status update without helmet id")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	helmet := s.getOrCreateLocked(helmetID)
	helmet.Status = status
	if !lastSeen.IsZero() {
		helmet.LastSeen = lastSeen
	}
	helmet.LastUpdated = time.Now()
}

// SetActiveHelmets replaces the active-helmet id list wholesale
func (s *HelmetStore) SetActiveHelmets(helmetIDs []string) {
	ids := make([]string, len(helmetIDs))
	copy(ids, helmetIDs)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = ids
}

// MarkStale flips helmets that have not reported within timeout to unknown
// and returns their ids.
func (s *HelmetStore) MarkStale(timeout time.Duration) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stale []string
	now := time.Now()
	for id, helmet := range s.helmets {
		if helmet.Status == models.HelmetUnknown {
			continue
		}
		if !helmet.LastUpdated.IsZero() && now.Sub(helmet.LastUpdated) > timeout {
			helmet.Status = models.HelmetUnknown
			stale = append(stale, id)
		}
	}
	return stale
}

// SelectHelmet marks a helmet as the operator's current selection
func (s *HelmetStore) SelectHelmet(helmetID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedID = helmetID
}

func (s *HelmetStore) SelectedHelmet() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedID
}

// Get returns a copy of the named helmet's record
func (s *HelmetStore) Get(helmetID string) (models.HelmetDevice, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	helmet, exists := s.helmets[helmetID]
	if !exists {
		return models.HelmetDevice{}, false
	}
	return copyHelmet(helmet), true
}

// Helmets returns a snapshot of every known helmet
func (s *HelmetStore) Helmets() []models.HelmetDevice {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.HelmetDevice, 0, len(s.helmets))
	for _, helmet := range s.helmets {
		out = append(out, copyHelmet(helmet))
	}
	return out
}

// ActiveHelmets returns the current active-helmet id list
func (s *HelmetStore) ActiveHelmets() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, len(s.active))
	copy(out, s.active)
	return out
}

// Remove deletes a helmet on explicit operator action
func (s *HelmetStore) Remove(helmetID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.helmets, helmetID)
	filtered := s.active[:0]
	for _, id := range s.active {
		if id != helmetID {
			filtered = append(filtered, id)
		}
	}
	s.active = filtered
	if s.selectedID == helmetID {
		s.selectedID = ""
	}
}

// Clear empties the registry at session end
func (s *HelmetStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.helmets = make(map[string]*models.HelmetDevice)
	s.active = nil
	s.selectedID = ""
}

func copyHelmet(h *models.HelmetDevice) models.HelmetDevice {
	out := *h
	if h.Sensors != nil {
		sensors := *h.Sensors
		out.Sensors = &sensors
	}
	if h.Location != nil {
		location := *h.Location
		out.Location = &location
	}
	if len(h.Cracks) > 0 {
		out.Cracks = make([]models.CrackEvent, len(h.Cracks))
		copy(out.Cracks, h.Cracks)
	}
	return out
}
