// Package scenario holds the immutable description of a manufacturing cell:
// production orders, products, equipment, materials, sensors and the scripted
// disruptions that the simulator replays.
package scenario

import "sort"

const (
	// DefaultChangeoverSeconds is used when a scenario omits changeover_seconds.
	DefaultChangeoverSeconds = 10
	// DefaultMaintenanceThreshold is the rated cycle count used for
	// maintenance prediction when equipment does not declare its own.
	DefaultMaintenanceThreshold = 500
)

// Scenario is the loaded, validated and read-only scenario. Accessors return
// copies so callers can never mutate the store.
type Scenario struct {
	name                 string
	orders               []Order
	products             map[string]Product
	equipment            map[string]Equipment
	equipmentOrder       []string
	materials            map[string]Material
	materialOrder        []string
	sensors              map[string]Sensor
	disruptions          []Disruption
	units                []Unit
	quality              QualityStandards
	safety               SafetyProtocols
	changeoverSeconds    int
	maintenanceThreshold int
}

// Name returns the scenario label.
func (s *Scenario) Name() string { return s.name }

// Orders returns the production orders in declaration order.
func (s *Scenario) Orders() []Order {
	out := make([]Order, len(s.orders))
	copy(out, s.orders)
	return out
}

// Product looks up a product definition.
func (s *Scenario) Product(id string) (Product, bool) {
	p, ok := s.products[id]
	if !ok {
		return Product{}, false
	}
	return p.clone(), true
}

// ProductIDs returns every product id sorted.
func (s *Scenario) ProductIDs() []string {
	ids := make([]string, 0, len(s.products))
	for id := range s.products {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Equipment looks up a piece of equipment.
func (s *Scenario) Equipment(id string) (Equipment, bool) {
	e, ok := s.equipment[id]
	if !ok {
		return Equipment{}, false
	}
	return e.Clone(), true
}

// EquipmentIDs returns equipment ids in declaration order.
func (s *Scenario) EquipmentIDs() []string {
	return cloneStrings(s.equipmentOrder)
}

// EquipmentList returns copies of every piece of equipment in declaration order.
func (s *Scenario) EquipmentList() []Equipment {
	out := make([]Equipment, 0, len(s.equipmentOrder))
	for _, id := range s.equipmentOrder {
		out = append(out, s.equipment[id].Clone())
	}
	return out
}

// Material looks up a material.
func (s *Scenario) Material(id string) (Material, bool) {
	m, ok := s.materials[id]
	return m, ok
}

// Materials returns every material in declaration order.
func (s *Scenario) Materials() []Material {
	out := make([]Material, 0, len(s.materialOrder))
	for _, id := range s.materialOrder {
		out = append(out, s.materials[id])
	}
	return out
}

// Sensor looks up a sensor channel by name.
func (s *Scenario) Sensor(name string) (Sensor, bool) {
	sensor, ok := s.sensors[name]
	return sensor, ok
}

// SensorNames returns the configured sensor channels sorted.
func (s *Scenario) SensorNames() []string {
	names := make([]string, 0, len(s.sensors))
	for name := range s.sensors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Disruptions returns every scripted disruption in declaration order.
func (s *Scenario) Disruptions() []Disruption {
	out := make([]Disruption, len(s.disruptions))
	copy(out, s.disruptions)
	return out
}

// DisruptionsAt returns the disruptions triggered by unitID in declaration
// order.
func (s *Scenario) DisruptionsAt(unitID int) []Disruption {
	var out []Disruption
	for _, d := range s.disruptions {
		if d.TriggerUnitID == unitID {
			out = append(out, d)
		}
	}
	return out
}

// Units returns the expanded production units in arrival order.
func (s *Scenario) Units() []Unit {
	out := make([]Unit, len(s.units))
	for i, u := range s.units {
		out[i] = u.clone()
	}
	return out
}

// Unit looks up a unit by its 1-based id.
func (s *Scenario) Unit(id int) (Unit, bool) {
	if id < 1 || id > len(s.units) {
		return Unit{}, false
	}
	return s.units[id-1].clone(), true
}

// TotalUnits is the sum of order quantities.
func (s *Scenario) TotalUnits() int { return len(s.units) }

// QualityStandards returns the inspection standards.
func (s *Scenario) QualityStandards() QualityStandards { return s.quality }

// SafetyProtocols returns the safety configuration.
func (s *Scenario) SafetyProtocols() SafetyProtocols {
	out := s.safety
	out.RestrictedZones = cloneStrings(s.safety.RestrictedZones)
	return out
}

// ChangeoverSeconds is the simulated cost of switching product types.
func (s *Scenario) ChangeoverSeconds() int { return s.changeoverSeconds }

// MaintenanceThreshold is the default rated cycle count.
func (s *Scenario) MaintenanceThreshold() int { return s.maintenanceThreshold }

// FirstCapable returns the first operational equipment in declaration order
// from pool whose capabilities cover reqs.
func FirstCapable(pool []Equipment, reqs []string) (Equipment, bool) {
	for _, e := range pool {
		if e.Operational() && e.Covers(reqs) {
			return e, true
		}
	}
	return Equipment{}, false
}
