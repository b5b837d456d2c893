package kube

import (
	"fmt"
	"os"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// NewClientset builds a Kubernetes clientset from, in order: inline
// kubeconfig content, a kubeconfig path, the in-cluster config, and the
// default kubeconfig location.
func NewClientset() (*kubernetes.Clientset, error) {
	var cfg *rest.Config
	var err error

	if content := os.Getenv("KUBECONFIG_CONTENT"); content != "" {
		tmpFile, err := os.CreateTemp("", "kubeconfig-")
		if err != nil {
			return nil, fmt.Errorf("failed to create temp file: %w", err)
		}
		defer os.Remove(tmpFile.Name())

		if _, err := tmpFile.WriteString(content); err != nil {
			return nil, fmt.Errorf("failed to write kubeconfig: %w", err)
		}
		tmpFile.Close()

		cfg, err = clientcmd.BuildConfigFromFlags("", tmpFile.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to build config from kubeconfig content: %w", err)
		}
	} else if path := os.Getenv("KUBECONFIG_PATH"); path != "" {
		cfg, err = clientcmd.BuildConfigFromFlags("", path)
		if err != nil {
			return nil, fmt.Errorf("failed to build config from kubeconfig path: %w", err)
		}
	} else {
		cfg, err = rest.InClusterConfig()
		if err != nil {
			kubeconfig := os.Getenv("HOME") + "/.kube/config"
			cfg, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
			if err != nil {
				return nil, fmt.Errorf("failed to build config: %w", err)
			}
		}
	}

	clientset, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create clientset: %w", err)
	}
	return clientset, nil
}
