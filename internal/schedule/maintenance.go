package schedule

import "time"

// MaintenanceStatus 维护记录状态
type MaintenanceStatus string

const (
	MaintenanceScheduled  MaintenanceStatus = "scheduled"
	MaintenanceInProgress MaintenanceStatus = "in_progress"
	MaintenanceCompleted  MaintenanceStatus = "completed"
	MaintenanceCancelled  MaintenanceStatus = "cancelled"
	// MaintenanceOverdue 只在读取时计算,不落库
	MaintenanceOverdue MaintenanceStatus = "overdue"
)

// Stored 判断是否为可以持久化的状态
func (s MaintenanceStatus) Stored() bool {
	switch s {
	case MaintenanceScheduled, MaintenanceInProgress, MaintenanceCompleted, MaintenanceCancelled:
		return true
	}
	return false
}

// Valid 判断是否为合法的查询状态
func (s MaintenanceStatus) Valid() bool {
	return s.Stored() || s == MaintenanceOverdue
}

// MaintenanceType 维护类型
type MaintenanceType string

const (
	MaintenancePreventive MaintenanceType = "preventive"
	MaintenanceCorrective MaintenanceType = "corrective"
	MaintenanceInspection MaintenanceType = "inspection"
)

// Valid 判断维护类型是否合法
func (t MaintenanceType) Valid() bool {
	switch t {
	case MaintenancePreventive, MaintenanceCorrective, MaintenanceInspection:
		return true
	}
	return false
}

// EffectiveMaintenanceStatus 读取时的有效状态
// 计划日期已过的 scheduled 记录视为 overdue,其他状态原样返回
func EffectiveMaintenanceStatus(status MaintenanceStatus, scheduledDate, now time.Time) MaintenanceStatus {
	if status == MaintenanceScheduled && scheduledDate.Before(now) {
		return MaintenanceOverdue
	}
	return status
}
