package domain

import "time"

// AssetType classifies inventory items.
type AssetType string

const (
	AssetServer      AssetType = "server"
	AssetWorkstation AssetType = "workstation"
	AssetNetwork     AssetType = "network"
	AssetApplication AssetType = "application"
	AssetDatabase    AssetType = "database"
	AssetCloud       AssetType = "cloud"
	AssetOther       AssetType = "other"
)

// Environment is the deployment tier of an asset.
type Environment string

const (
	EnvProduction  Environment = "production"
	EnvStaging     Environment = "staging"
	EnvDevelopment Environment = "development"
)

// AssetStatus enumerates inventory states.
type AssetStatus string

const (
	AssetActive  AssetStatus = "active"
	AssetRetired AssetStatus = "retired"
)

// Asset is an inventory item, optionally bound to a system boundary.
type Asset struct {
	ID              string      `db:"id" json:"id"`
	OrgID           string      `db:"org_id" json:"org_id"`
	SystemID        *string     `db:"system_id" json:"system_id,omitempty"`
	Name            string      `db:"name" json:"name"`
	AssetType       AssetType   `db:"asset_type" json:"asset_type"`
	Hostname        string      `db:"hostname" json:"hostname"`
	IPAddress       string      `db:"ip_address" json:"ip_address"`
	OperatingSystem string      `db:"operating_system" json:"operating_system"`
	Owner           string      `db:"owner" json:"owner"`
	Environment     Environment `db:"environment" json:"environment"`
	Criticality     RiskLevel   `db:"criticality" json:"criticality"`
	Status          AssetStatus `db:"status" json:"status"`
	LastSeenAt      *time.Time  `db:"last_seen_at" json:"last_seen_at,omitempty"`
	CreatedAt       time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at" json:"updated_at"`
}

func (t AssetType) Valid() bool {
	switch t {
	case AssetServer, AssetWorkstation, AssetNetwork, AssetApplication, AssetDatabase, AssetCloud, AssetOther:
		return true
	}
	return false
}

func (e Environment) Valid() bool {
	return e == EnvProduction || e == EnvStaging || e == EnvDevelopment
}

func (s AssetStatus) Valid() bool {
	return s == AssetActive || s == AssetRetired
}
