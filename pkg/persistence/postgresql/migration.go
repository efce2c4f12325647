package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: initialSchema(),
	}
}

func initialSchema() string {
	return `
		CREATE TABLE workflows (
			id VARCHAR(255) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			description TEXT,
			shop_domain VARCHAR(255) NOT NULL,
			owner_email VARCHAR(255),
			active BOOLEAN NOT NULL DEFAULT FALSE,
			nodes JSONB NOT NULL DEFAULT '[]',
			edges JSONB NOT NULL DEFAULT '[]',
			created_at TIMESTAMP WITH TIME ZONE NOT NULL,
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
			position BIGSERIAL
		);

		CREATE INDEX idx_workflows_shop_active ON workflows(lower(shop_domain), active);

		CREATE TABLE executions (
			id VARCHAR(255) PRIMARY KEY,
			workflow_id VARCHAR(255) NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
			event VARCHAR(255) NOT NULL,
			external_event_id VARCHAR(255),
			shop_domain VARCHAR(255) NOT NULL,
			status VARCHAR(50) NOT NULL,
			error TEXT,
			started_at TIMESTAMP WITH TIME ZONE NOT NULL,
			finished_at TIMESTAMP WITH TIME ZONE
		);

		CREATE INDEX idx_executions_workflow_id ON executions(workflow_id, started_at);

		CREATE TABLE execution_logs (
			id VARCHAR(255) PRIMARY KEY,
			execution_id VARCHAR(255) NOT NULL REFERENCES executions(id) ON DELETE CASCADE,
			node_id VARCHAR(255),
			level VARCHAR(20) NOT NULL,
			message TEXT NOT NULL,
			data JSONB,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL,
			position BIGSERIAL
		);

		CREATE INDEX idx_execution_logs_execution_id ON execution_logs(execution_id, position);
	`
}
