package kube

import (
	"context"
	"fmt"
	"strings"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

// Node labels that managed distributions stamp with the cluster name.
var nodeClusterLabels = []string{
	"kubernetes.azure.com/cluster",
	"alpha.eksctl.io/cluster-name",
	"eks.amazonaws.com/cluster-name",
	"cluster.x-k8s.io/cluster-name",
	"kops.k8s.io/cluster",
}

// DetectClusterName tries to infer a human friendly cluster name for the
// report title, returning the first non-empty value discovered.
func DetectClusterName(ctx context.Context, client kubernetes.Interface) (string, error) {
	if name, err := clusterNameFromConfigMaps(ctx, client); err == nil && name != "" {
		return name, nil
	}

	nodes, err := client.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return "", fmt.Errorf("list nodes: %w", err)
	}
	for _, node := range nodes.Items {
		for _, key := range nodeClusterLabels {
			if value := strings.TrimSpace(node.Labels[key]); value != "" {
				return value, nil
			}
		}
	}
	return "", fmt.Errorf("cluster name not discovered")
}

func clusterNameFromConfigMaps(ctx context.Context, client kubernetes.Interface) (string, error) {
	for _, ns := range []string{"kube-system", "kube-public"} {
		cm, err := client.CoreV1().ConfigMaps(ns).Get(ctx, "cluster-info", metav1.GetOptions{})
		if err != nil {
			if apierrors.IsNotFound(err) {
				continue
			}
			return "", err
		}
		for _, key := range []string{"cluster-name", "clusterName"} {
			if value := strings.TrimSpace(cm.Data[key]); value != "" {
				return value, nil
			}
		}
	}
	return "", nil
}
