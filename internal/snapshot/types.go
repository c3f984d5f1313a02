package snapshot

import "time"

// PodDetail is the per-pod record kept alongside the phase counts.
type PodDetail struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
	Phase     string `json:"phase"`
	Restarts  int32  `json:"restarts"`
	AgeDays   int    `json:"ageDays"`
}

// PodCensus counts pods by phase. Total always equals the sum of the four
// phase counters; completed (Succeeded) pods are excluded from the census.
type PodCensus struct {
	Total   int         `json:"total"`
	Running int         `json:"running"`
	Pending int         `json:"pending"`
	Failed  int         `json:"failed"`
	Unknown int         `json:"unknown"`
	Details []PodDetail `json:"details"`
}

// NodeCondition is a single node condition flag as reported by the API.
type NodeCondition struct {
	Type   string `json:"type"`
	Status string `json:"status"`
}

// Node captures node capacity and condition state.
type Node struct {
	Name                   string          `json:"name"`
	CPUCapacityMilli       int64           `json:"cpuCapacityMilli"`
	MemoryCapacityBytes    int64           `json:"memoryCapacityBytes"`
	CPUAllocatableMilli    int64           `json:"cpuAllocatableMilli"`
	MemoryAllocatableBytes int64           `json:"memoryAllocatableBytes"`
	Conditions             []NodeCondition `json:"conditions"`
}

// PodUsage is one pod flagged for elevated resource consumption.
type PodUsage struct {
	Name        string `json:"name"`
	Namespace   string `json:"namespace"`
	CPUMilli    int64  `json:"cpuMilli"`
	MemoryBytes int64  `json:"memoryBytes"`
}

// ResourceUsage aggregates metrics-API readings for the whole cluster.
type ResourceUsage struct {
	CPUUsageMilliTotal    int64      `json:"cpuUsageMilliTotal"`
	MemoryUsageBytesTotal int64      `json:"memoryUsageBytesTotal"`
	PodCount              int        `json:"podCount"`
	HighCPUPods           []PodUsage `json:"highCpuPods"`
	HighMemoryPods        []PodUsage `json:"highMemoryPods"`
}

// Event is one cluster event inside the trailing collection window.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"` // Warning or Normal
	Reason    string    `json:"reason"`
	Message   string    `json:"message"`
	Object    string    `json:"object"` // Kind/name of the involved object
	Namespace string    `json:"namespace"`
	Count     int32     `json:"count"`
}

// ContainerStatus is the per-container diagnostic attached to a failed pod.
type ContainerStatus struct {
	Name         string `json:"name"`
	Ready        bool   `json:"ready"`
	RestartCount int32  `json:"restartCount"`
	State        string `json:"state"`
}

// FailedPod carries the diagnostics for a pod in phase Failed.
type FailedPod struct {
	Name       string            `json:"name"`
	Namespace  string            `json:"namespace"`
	Reason     string            `json:"reason"`
	Message    string            `json:"message"`
	Containers []ContainerStatus `json:"containers"`
}

// Snapshot is one immutable observation of cluster state. ResourceUsage is
// nil when the metrics source was unavailable at collection time; every
// other field is always populated, possibly empty.
type Snapshot struct {
	ClusterName   string         `json:"clusterName"`
	Timestamp     time.Time      `json:"timestamp"`
	Pods          PodCensus      `json:"pods"`
	Nodes         []Node         `json:"nodes"`
	ResourceUsage *ResourceUsage `json:"resourceUsage,omitempty"`
	Events        []Event        `json:"events"`
	FailedPods    []FailedPod    `json:"failedPods"`
}
