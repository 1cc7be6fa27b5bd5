package db

import (
	"context"

	"github.com/jmoiron/sqlx"
)

const schema = `
CREATE TABLE IF NOT EXISTS agreement (
  id BIGSERIAL PRIMARY KEY,
  agreement_number VARCHAR(20) NOT NULL,
  managing_unit_code VARCHAR(10) NOT NULL,
  managing_unit_name VARCHAR(255),
  control_number VARCHAR(100) NOT NULL,
  purchase_control_number VARCHAR(100),
  purchase_id VARCHAR(50),
  purchase_number VARCHAR(10),
  purchase_year VARCHAR(4),
  purchase_modality_code VARCHAR(5),
  purchase_modality_name VARCHAR(50),
  signing_date DATE,
  validity_start DATE NOT NULL,
  validity_end DATE NOT NULL,
  inserted_at TIMESTAMP NOT NULL DEFAULT now(),
  updated_at TIMESTAMP NOT NULL DEFAULT now()
);
CREATE UNIQUE INDEX IF NOT EXISTS uq_agreement_control_number ON agreement(control_number);
CREATE UNIQUE INDEX IF NOT EXISTS uq_agreement_number_unit ON agreement(agreement_number, managing_unit_code);
CREATE INDEX IF NOT EXISTS idx_agreement_validity_end ON agreement(validity_end);

CREATE TABLE IF NOT EXISTS catalog_item (
  item_code BIGINT PRIMARY KEY,
  item_type VARCHAR(50) NOT NULL,
  primary_description TEXT,
  pdm_code BIGINT,
  pdm_name VARCHAR(255),
  created_at TIMESTAMP NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS item_description (
  id BIGSERIAL PRIMARY KEY,
  item_code BIGINT NOT NULL REFERENCES catalog_item(item_code),
  description TEXT NOT NULL,
  recorded_at TIMESTAMP NOT NULL DEFAULT now()
);
CREATE UNIQUE INDEX IF NOT EXISTS uq_item_description ON item_description(item_code, description);

CREATE TABLE IF NOT EXISTS agreement_item (
  id BIGSERIAL PRIMARY KEY,
  agreement_id BIGINT NOT NULL REFERENCES agreement(id),
  item_code BIGINT NOT NULL REFERENCES catalog_item(item_code),
  line_number VARCHAR(10) NOT NULL DEFAULT '',
  original_description TEXT,
  homologated_qty DECIMAL(18,4),
  supplier_ranking VARCHAR(10),
  supplier_ni VARCHAR(20),
  supplier_name VARCHAR(255),
  winner_homologated_qty DECIMAL(18,4),
  unit_value DECIMAL(18,4),
  total_value DECIMAL(18,4),
  max_adhesion_qty DECIMAL(18,4),
  committed_qty DECIMAL(18,4),
  best_discount_pct DECIMAL(10,4),
  sicaf_status VARCHAR(5),
  excluded BOOLEAN NOT NULL DEFAULT false,
  excluded_at TIMESTAMP
);
CREATE UNIQUE INDEX IF NOT EXISTS uq_agreement_item_line ON agreement_item(agreement_id, item_code, line_number);
CREATE INDEX IF NOT EXISTS idx_agreement_item_code ON agreement_item(item_code);

CREATE TABLE IF NOT EXISTS system_config (
  id BIGSERIAL PRIMARY KEY,
  key VARCHAR(100) NOT NULL,
  value VARCHAR(500) NOT NULL,
  description VARCHAR(255),
  updated_at TIMESTAMP NOT NULL DEFAULT now()
);
CREATE UNIQUE INDEX IF NOT EXISTS uq_system_config_key ON system_config(key);
`

// EnsureSchema creates the tables and indexes if they do not exist yet.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}
