package dto

// MonitoringRequest saves the auto monitor settings
type MonitoringRequest struct {
	AutoScanEnabled bool `json:"autoScanEnabled"`
	ScanInterval    int  `json:"scanInterval" validate:"required,scan_interval"`
	CriticalOnly    bool `json:"criticalOnly"`
}
