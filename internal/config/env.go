package config

import (
	"github.com/JaimeStill/foreman/internal/compliance"
	"github.com/JaimeStill/foreman/internal/editor"
	"github.com/JaimeStill/foreman/internal/monitor"
	"github.com/JaimeStill/foreman/internal/tax"
	"github.com/JaimeStill/foreman/internal/templates"
	"github.com/JaimeStill/foreman/internal/validation"
	"github.com/JaimeStill/foreman/pkg/database"
	"github.com/JaimeStill/foreman/pkg/storage"
)

var databaseEnv = &database.Env{
	Driver:          "FOREMAN_DB_DRIVER",
	Path:            "FOREMAN_DB_PATH",
	Host:            "FOREMAN_DB_HOST",
	Port:            "FOREMAN_DB_PORT",
	Name:            "FOREMAN_DB_NAME",
	User:            "FOREMAN_DB_USER",
	Password:        "FOREMAN_DB_PASSWORD",
	SSLMode:         "FOREMAN_DB_SSL_MODE",
	MaxOpenConns:    "FOREMAN_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "FOREMAN_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "FOREMAN_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "FOREMAN_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	Backend:          "FOREMAN_STORAGE_BACKEND",
	Root:             "FOREMAN_STORAGE_ROOT",
	ContainerName:    "FOREMAN_STORAGE_CONTAINER_NAME",
	ConnectionString: "FOREMAN_STORAGE_CONNECTION_STRING",
	MaxListSize:      "FOREMAN_STORAGE_MAX_LIST_SIZE",
}

var templatesEnv = &templates.Env{
	Dir:   "FOREMAN_TEMPLATES_DIR",
	Watch: "FOREMAN_TEMPLATES_WATCH",
}

var taxEnv = &tax.Env{
	DefaultRate:         "FOREMAN_TAX_DEFAULT_RATE",
	DefaultJurisdiction: "FOREMAN_TAX_DEFAULT_JURISDICTION",
}

var validationEnv = &validation.Env{
	VisionThreshold:   "FOREMAN_VALIDATION_VISION_THRESHOLD",
	BlockOnProduction: "FOREMAN_VALIDATION_BLOCK_ON_PRODUCTION",
	MaxPages:          "FOREMAN_VALIDATION_MAX_PAGES",
	EditorTimeout:     "FOREMAN_VALIDATION_EDITOR_TIMEOUT",
	VisionTimeout:     "FOREMAN_VALIDATION_VISION_TIMEOUT",
	WorkDir:           "FOREMAN_VALIDATION_WORK_DIR",
}

var editorEnv = &editor.Env{
	Backend:     "FOREMAN_EDITOR_BACKEND",
	ExecPath:    "FOREMAN_EDITOR_EXEC_PATH",
	Headful:     "FOREMAN_EDITOR_HEADFUL",
	NoSandbox:   "FOREMAN_EDITOR_NO_SANDBOX",
	CallTimeout: "FOREMAN_EDITOR_CALL_TIMEOUT",
}

var monitorEnv = &monitor.Env{
	Interval:    "FOREMAN_MONITOR_INTERVAL",
	MaxDuration: "FOREMAN_MONITOR_MAX_DURATION",
}

var complianceEnv = &compliance.Env{
	ProtocolFile: "FOREMAN_COMPLIANCE_PROTOCOL_FILE",
}
