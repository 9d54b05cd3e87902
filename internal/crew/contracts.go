package crew

// Contract describes the minimum expectations for an agent role.
type Contract struct {
	AgentID       string
	Name          string
	RequiredTools []string
	Outputs       []string
}

// Agent identifiers of the four roles.
const (
	PlanningAgent     = "planning_agent"
	RobotControlAgent = "robot_control_agent"
	QualityAgent      = "quality_agent"
	ExceptionAgent    = "exception_agent"
)

var roleContracts = map[string]Contract{
	PlanningAgent: {
		AgentID: PlanningAgent,
		Name:    "Planning Agent",
		RequiredTools: []string{
			"parse_production_order",
			"generate_manufacturing_sequence",
			"coordinate_robots",
			"adapt_plan_for_disruption",
			"track_production_progress",
		},
		Outputs: []string{"production-plan", "manufacturing-report"},
	},
	RobotControlAgent: {
		AgentID: RobotControlAgent,
		Name:    "Robot Control Agent",
		RequiredTools: []string{
			"translate_to_motion_primitives",
			"read_sensor_data",
			"execute_motion",
			"check_human_proximity",
			"emergency_stop",
		},
		Outputs: []string{"execution-log"},
	},
	QualityAgent: {
		AgentID: QualityAgent,
		Name:    "Quality Agent",
		RequiredTools: []string{
			"inspect_product_quality",
			"analyze_quality_trends",
			"suggest_process_improvements",
			"predict_maintenance_needs",
		},
		Outputs: []string{"inspection-results", "maintenance-forecast"},
	},
	ExceptionAgent: {
		AgentID: ExceptionAgent,
		Name:    "Exception Agent",
		RequiredTools: []string{
			"detect_anomalies",
			"generate_recovery_strategy",
			"validate_safety_protocols",
			"log_incident",
		},
		Outputs: []string{"recovery-log", "incident-log"},
	},
}

// ContractForAgent returns the contract for the given agent id, if it exists.
func ContractForAgent(id string) (Contract, bool) {
	contract, ok := roleContracts[id]
	return contract, ok
}

// AgentIDs lists the contracted agents in crew order.
func AgentIDs() []string {
	return []string{PlanningAgent, RobotControlAgent, QualityAgent, ExceptionAgent}
}
