package tools

import "github.com/kingrea/cellsim/internal/crew"

func catalog() []*Tool {
	return []*Tool{
		{
			Name:        "parse_production_order",
			Agent:       crew.PlanningAgent,
			Description: "List the scenario's production orders and the total number of units to produce.",
			Parameters:  schema(`"order_text":{"type":"string","description":"Free-form order text; the scenario's orders are authoritative."}`),
			handler:     parseProductionOrder,
		},
		{
			Name:        "generate_manufacturing_sequence",
			Agent:       crew.PlanningAgent,
			Description: "Describe the process steps, timing and tooling for a product.",
			Parameters:  schema(`"product_name":{"type":"string","minLength":1}`, "product_name"),
			handler:     generateManufacturingSequence,
		},
		{
			Name:        "coordinate_robots",
			Agent:       crew.PlanningAgent,
			Description: "Assign a unit to the first operational equipment whose capabilities cover its steps.",
			Parameters:  schema(`"product_name":{"type":"string","minLength":1},"unit_number":{"type":"integer","minimum":1}`, "product_name", "unit_number"),
			handler:     coordinateRobots,
		},
		{
			Name:        "adapt_plan_for_disruption",
			Agent:       crew.PlanningAgent,
			Description: "Describe how the production plan changes for a disruption.",
			Parameters:  schema(`"disruption_type":{"type":"string","enum":["equipment_failure","material_shortage","human_intervention"]},"target":{"type":"string"},"unit_number":{"type":"integer","minimum":1}`, "disruption_type", "target"),
			handler:     adaptPlanForDisruption,
		},
		{
			Name:        "track_production_progress",
			Agent:       crew.PlanningAgent,
			Description: "Report units completed, disruptions handled and quality checks passed.",
			Parameters:  schema(""),
			handler:     trackProductionProgress,
		},
		{
			Name:        "translate_to_motion_primitives",
			Agent:       crew.RobotControlAgent,
			Description: "Convert a process step into the robot's motion primitives.",
			Parameters:  schema(`"task":{"type":"string","minLength":1},"robot":{"type":"string","minLength":1}`, "task", "robot"),
			handler:     translateToMotionPrimitives,
		},
		{
			Name:        "read_sensor_data",
			Agent:       crew.RobotControlAgent,
			Description: "Read the nominal value of one sensor channel, or all of them.",
			Parameters:  schema(`"sensor_type":{"type":"string","default":"all"}`),
			handler:     readSensorData,
		},
		{
			Name:        "execute_motion",
			Agent:       crew.RobotControlAgent,
			Description: "Execute a process step on a robot and record its simulated duration.",
			Parameters:  schema(`"step":{"type":"string","minLength":1},"robot":{"type":"string","minLength":1},"duration":{"type":"integer","minimum":0}`, "step", "robot"),
			handler:     executeMotion,
		},
		{
			Name:        "check_human_proximity",
			Agent:       crew.RobotControlAgent,
			Description: "Check whether a human is inside the safety radius at a location.",
			Parameters:  schema(`"location":{"type":"string","minLength":1},"unit_number":{"type":"integer","minimum":1}`, "location"),
			handler:     checkHumanProximity,
		},
		{
			Name:        "emergency_stop",
			Agent:       crew.RobotControlAgent,
			Description: "Halt all robot motion until safety clearance.",
			Parameters:  schema(`"reason":{"type":"string","minLength":1}`, "reason"),
			handler:     emergencyStop,
		},
		{
			Name:        "inspect_product_quality",
			Agent:       crew.QualityAgent,
			Description: "Inspect a finished unit against the product tolerance.",
			Parameters:  schema(`"product":{"type":"string","minLength":1},"unit":{"type":"integer","minimum":1}`, "product", "unit"),
			handler:     inspectProductQuality,
		},
		{
			Name:        "analyze_quality_trends",
			Agent:       crew.QualityAgent,
			Description: "Compare the recent average cycle time of a batch with the product target.",
			Parameters:  schema(`"product":{"type":"string","minLength":1},"batch_size":{"type":"integer","minimum":1}`, "product", "batch_size"),
			handler:     analyzeQualityTrends,
		},
		{
			Name:        "suggest_process_improvements",
			Agent:       crew.QualityAgent,
			Description: "Recommend a process change for an observed issue.",
			Parameters:  schema(`"issue":{"type":"string","minLength":1}`, "issue"),
			handler:     suggestProcessImprovements,
		},
		{
			Name:        "predict_maintenance_needs",
			Agent:       crew.QualityAgent,
			Description: "Forecast maintenance from completed and rated cycles.",
			Parameters:  schema(`"robot":{"type":"string","minLength":1}`, "robot"),
			handler:     predictMaintenanceNeeds,
		},
		{
			Name:        "detect_anomalies",
			Agent:       crew.ExceptionAgent,
			Description: "List the scripted disruptions that fire at a unit.",
			Parameters:  schema(`"unit_number":{"type":"integer","minimum":1}`, "unit_number"),
			handler:     detectAnomalies,
		},
		{
			Name:        "generate_recovery_strategy",
			Agent:       crew.ExceptionAgent,
			Description: "Preview the recovery the resolver would apply to a disruption without changing the cell.",
			Parameters:  schema(`"disruption_type":{"type":"string","enum":["equipment_failure","material_shortage","human_intervention"]},"target":{"type":"string"},"unit_number":{"type":"integer","minimum":1}`, "disruption_type", "target"),
			handler:     generateRecoveryStrategy,
		},
		{
			Name:        "validate_safety_protocols",
			Agent:       crew.ExceptionAgent,
			Description: "Check the scenario's safety configuration for violations.",
			Parameters:  schema(`"scenario_name":{"type":"string"}`),
			handler:     validateSafetyProtocols,
		},
		{
			Name:        "log_incident",
			Agent:       crew.ExceptionAgent,
			Description: "Record an exception event in the incident journal.",
			Parameters:  schema(`"incident_type":{"type":"string","minLength":1},"details":{"type":"string","minLength":1},"severity":{"type":"string"},"unit_number":{"type":"integer","minimum":1}`, "incident_type", "details"),
			handler:     logIncident,
		},
	}
}
