package scenario

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/kaptinlin/jsonschema"
)

//go:embed schema.json
var schemaJSON []byte

//go:embed default.json
var defaultJSON []byte

var requiredKeys = []string{"production_orders", "equipment", "disruptions"}

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

type document struct {
	Name                 string             `json:"name"`
	Orders               []Order            `json:"production_orders"`
	Products             map[string]Product `json:"products"`
	Equipment            []Equipment        `json:"equipment"`
	Materials            []Material         `json:"materials"`
	Sensors              map[string]Sensor  `json:"sensors"`
	Disruptions          []Disruption       `json:"disruptions"`
	QualityStandards     QualityStandards   `json:"quality_standards"`
	SafetyProtocols      SafetyProtocols    `json:"safety_protocols"`
	ChangeoverSeconds    *int               `json:"changeover_seconds"`
	MaintenanceThreshold *int               `json:"maintenance_threshold_cycles"`
}

// Schema returns the embedded JSON Schema for scenario documents.
func Schema() []byte {
	out := make([]byte, len(schemaJSON))
	copy(out, schemaJSON)
	return out
}

// DefaultJSON returns the embedded documented scenario payload.
func DefaultJSON() []byte {
	out := make([]byte, len(defaultJSON))
	copy(out, defaultJSON)
	return out
}

// Default returns the documented five-unit scenario embedded in the binary.
func Default() *Scenario {
	s, err := Parse(defaultJSON)
	if err != nil {
		panic(fmt.Sprintf("scenario: embedded default is invalid: %v", err))
	}
	return s
}

// LoadFile reads and validates a scenario from disk.
func LoadFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ScenarioLoadError{Path: path, Reason: "read file", Err: err}
	}
	s, err := Parse(data)
	if err != nil {
		var loadErr *ScenarioLoadError
		if errors.As(err, &loadErr) {
			loadErr.Path = path
		}
		return nil, err
	}
	return s, nil
}

// Load reads and validates a scenario from r.
func Load(r io.Reader) (*Scenario, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, loadError("read", err)
	}
	return Parse(data)
}

// Parse validates a raw scenario payload and builds the store.
func Parse(data []byte) (*Scenario, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, loadError("payload is empty", nil)
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, loadError("decode json", err)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, loadError("top-level value must be an object", nil)
	}
	var missing []string
	for _, key := range requiredKeys {
		if _, ok := obj[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, loadError("missing required keys: "+strings.Join(missing, ", "), nil)
	}
	if err := validateSchema(raw); err != nil {
		return nil, loadError("schema validation", err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, loadError("decode scenario", err)
	}
	return build(doc)
}

func validateSchema(instance any) error {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiledSchema, schemaErr = compiler.Compile(schemaJSON)
	})
	if schemaErr != nil {
		return fmt.Errorf("compile embedded schema: %w", schemaErr)
	}
	result := compiledSchema.Validate(instance)
	if !result.IsValid() {
		return fmt.Errorf("%s", result.Error())
	}
	return nil
}

func build(doc document) (*Scenario, error) {
	s := &Scenario{
		name:                 strings.TrimSpace(doc.Name),
		products:             make(map[string]Product, len(doc.Products)),
		equipment:            make(map[string]Equipment, len(doc.Equipment)),
		materials:            make(map[string]Material, len(doc.Materials)),
		sensors:              make(map[string]Sensor, len(doc.Sensors)),
		quality:              doc.QualityStandards,
		safety:               doc.SafetyProtocols,
		changeoverSeconds:    DefaultChangeoverSeconds,
		maintenanceThreshold: DefaultMaintenanceThreshold,
	}
	if s.name == "" {
		s.name = "unnamed"
	}
	if doc.ChangeoverSeconds != nil {
		s.changeoverSeconds = *doc.ChangeoverSeconds
	}
	if doc.MaintenanceThreshold != nil {
		s.maintenanceThreshold = *doc.MaintenanceThreshold
	}

	for id, p := range doc.Products {
		p.ID = id
		s.products[id] = p.clone()
	}

	if len(doc.Equipment) == 0 {
		return nil, loadError("at least one piece of equipment is required", nil)
	}
	for _, e := range doc.Equipment {
		e.ID = strings.TrimSpace(e.ID)
		if e.ID == "" {
			return nil, loadError("equipment id is required", nil)
		}
		if _, dup := s.equipment[e.ID]; dup {
			return nil, loadError(fmt.Sprintf("duplicate equipment id %q", e.ID), nil)
		}
		if e.Status == "" {
			e.Status = StatusOperational
		}
		if e.CyclesRated == 0 {
			e.CyclesRated = s.maintenanceThreshold
		}
		s.equipment[e.ID] = e.Clone()
		s.equipmentOrder = append(s.equipmentOrder, e.ID)
	}

	for _, m := range doc.Materials {
		m.ID = strings.TrimSpace(m.ID)
		if _, dup := s.materials[m.ID]; dup {
			return nil, loadError(fmt.Sprintf("duplicate material id %q", m.ID), nil)
		}
		s.materials[m.ID] = m
		s.materialOrder = append(s.materialOrder, m.ID)
	}

	for name, sensor := range doc.Sensors {
		s.sensors[name] = sensor
	}

	if len(doc.Orders) == 0 {
		return nil, loadError("at least one production order is required", nil)
	}
	pool := s.EquipmentList()
	for idx, order := range doc.Orders {
		product, ok := s.products[order.Product]
		if !ok {
			return nil, loadError(fmt.Sprintf("order %d references unknown product %q", idx+1, order.Product), nil)
		}
		if order.Quantity < 1 {
			return nil, loadError(fmt.Sprintf("order %d quantity must be at least 1", idx+1), nil)
		}
		if !coverable(pool, product.Requirements()) {
			return nil, loadError(fmt.Sprintf("no equipment can perform product %q (needs %s)", product.ID, strings.Join(product.Requirements(), ", ")), nil)
		}
		s.orders = append(s.orders, order)
		for n := 1; n <= order.Quantity; n++ {
			s.units = append(s.units, Unit{
				ID:               len(s.units) + 1,
				Product:          product.ID,
				Steps:            cloneStrings(product.Steps),
				CycleTimeSeconds: product.CycleTimeSeconds,
				OrderIndex:       idx,
				Ordinal:          n,
				BatchSize:        order.Quantity,
			})
		}
	}

	for _, d := range doc.Disruptions {
		if !d.Kind.Valid() {
			return nil, loadError("invalid disruption", &UnknownDisruptionKindError{Kind: string(d.Kind), UnitID: d.TriggerUnitID})
		}
		if d.TriggerUnitID < 1 || d.TriggerUnitID > len(s.units) {
			return nil, loadError(fmt.Sprintf("%s disruption triggers at unit %d outside 1..%d", d.Kind, d.TriggerUnitID, len(s.units)), nil)
		}
		switch d.Kind {
		case EquipmentFailure:
			if _, ok := s.equipment[d.Target]; !ok {
				return nil, loadError(fmt.Sprintf("equipment_failure at unit %d targets unknown equipment %q", d.TriggerUnitID, d.Target), nil)
			}
		case MaterialShortage:
			if _, ok := s.materials[d.Target]; !ok {
				return nil, loadError(fmt.Sprintf("material_shortage at unit %d targets unknown material %q", d.TriggerUnitID, d.Target), nil)
			}
		}
		if d.DelaySeconds == 0 && d.DurationSeconds > 0 {
			d.DelaySeconds = d.DurationSeconds
		}
		if d.DelaySeconds < 0 {
			return nil, loadError(fmt.Sprintf("disruption at unit %d has negative delay", d.TriggerUnitID), nil)
		}
		s.disruptions = append(s.disruptions, d)
	}
	return s, nil
}

// coverable ignores status: a product is producible if any declared
// equipment has the capabilities, even if it starts in maintenance.
func coverable(pool []Equipment, reqs []string) bool {
	for _, e := range pool {
		if e.Covers(reqs) {
			return true
		}
	}
	return false
}
