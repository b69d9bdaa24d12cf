package types

// Version is the kbai release version
const Version = "0.1.0"

// ServiceName is reported by the health endpoint and used as the CLI name
const ServiceName = "kbai"
