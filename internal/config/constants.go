package config

const (
	// Configuration file paths
	ConfigPathRecipes = "configs/recipes/synthesis.json"
	ConfigPathLands   = "configs/lands/catalog.yaml"
)

const (
	DefaultSettlementTickSeconds = 60
	DefaultWorkerCount           = 4
	DefaultWorkerQueueSize       = 64
	DefaultLockRetryAttempts     = 50
	DefaultLockRetryDelayMs      = 10
)
