// Package kube wraps the Kubernetes API for the cluster-backed query path:
// pod discovery, in-pod command execution and single-file reads.
package kube

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/tools/remotecommand"
	k8sexec "k8s.io/client-go/util/exec"

	"mongoquery/internal/logging"
)

// readFileTimeoutSecs bounds the wait for single-file reads
const readFileTimeoutSecs int64 = 30

// executorFactory builds a command executor for an exec URL. Indirection
// exists so tests can substitute the SPDY transport.
type executorFactory func(config *rest.Config, method string, u *url.URL) (remotecommand.Executor, error)

// Client is the cluster API wrapper used by cluster-backed connections
type Client struct {
	clientset   kubernetes.Interface
	restConfig  *rest.Config
	newExecutor executorFactory
	logger      logging.Logger
}

// NewClient creates a Client from an explicit kubeconfig path, or from the
// default loading rules (in-cluster config, $KUBECONFIG, ~/.kube/config) when
// the path is empty.
func NewClient(kubeconfigPath string, logger logging.Logger) (*Client, error) {
	restConfig, err := resolveRestConfig(kubeconfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve kubernetes configuration: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes client: %w", err)
	}

	return &Client{
		clientset:   clientset,
		restConfig:  restConfig,
		newExecutor: remotecommand.NewSPDYExecutor,
		logger:      logger,
	}, nil
}

// NewClientWith builds a Client from preconstructed parts, for tests
func NewClientWith(clientset kubernetes.Interface, restConfig *rest.Config, factory executorFactory, logger logging.Logger) *Client {
	return &Client{
		clientset:   clientset,
		restConfig:  restConfig,
		newExecutor: factory,
		logger:      logger,
	}
}

func resolveRestConfig(kubeconfigPath string) (*rest.Config, error) {
	if kubeconfigPath != "" {
		config, err := clientcmd.BuildConfigFromFlags("", kubeconfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load kubeconfig from %s: %w", kubeconfigPath, err)
		}
		return config, nil
	}

	if config, err := rest.InClusterConfig(); err == nil {
		return config, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to locate home directory: %w", err)
	}
	return clientcmd.BuildConfigFromFlags("", filepath.Join(home, ".kube", "config"))
}

// FindHealthyPod returns the name of the first pod for the deployment that is
// running with all containers ready. Listing order decides: no randomization,
// no load spreading.
func (c *Client) FindHealthyPod(ctx context.Context, namespace, deployment string) (string, error) {
	labelSelector := fmt.Sprintf("app=%s", deployment)
	podList, err := c.clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{
		LabelSelector: labelSelector,
	})
	if err != nil {
		return "", fmt.Errorf("failed to list pods: %w", err)
	}

	c.logger.Debugf("Found %d pods for deployment %s in namespace %s", len(podList.Items), deployment, namespace)

	for i := range podList.Items {
		pod := &podList.Items[i]

		if pod.Status.Phase != corev1.PodRunning {
			c.logger.Debugf("Pod %s is not running (phase: %s)", pod.Name, pod.Status.Phase)
			continue
		}

		if len(pod.Status.ContainerStatuses) == 0 {
			continue
		}

		allReady := true
		for _, cs := range pod.Status.ContainerStatuses {
			if !cs.Ready {
				allReady = false
				break
			}
		}
		if !allReady {
			c.logger.Debugf("Pod %s has containers that are not ready", pod.Name)
			continue
		}

		c.logger.Infof("Found healthy pod: %s", pod.Name)
		return pod.Name, nil
	}

	return "", fmt.Errorf("no healthy pods found for deployment '%s' in namespace '%s'", deployment, namespace)
}

// Exec runs a command inside a pod container, draining stdout and stderr
// concurrently, bounded by the timeout. The timeout only abandons the local
// wait: the remote process is not guaranteed to stop.
func (c *Client) Exec(ctx context.Context, namespace, pod, container string, command []string, timeoutSecs int64) (string, error) {
	c.logger.Debugf("Executing command in pod %s/%s container %s: %v", namespace, pod, container, command)

	req := c.clientset.CoreV1().RESTClient().
		Post().
		Resource("pods").
		Name(pod).
		Namespace(namespace).
		SubResource("exec").
		VersionedParams(&corev1.PodExecOptions{
			Container: container,
			Command:   command,
			Stdout:    true,
			Stderr:    true,
		}, scheme.ParameterCodec)

	executor, err := c.newExecutor(c.restConfig, "POST", req.URL())
	if err != nil {
		return "", fmt.Errorf("failed to create exec session: %w", err)
	}

	execCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSecs)*time.Second)
	defer cancel()

	stdoutReader, stdoutWriter := io.Pipe()
	stderrReader, stderrWriter := io.Pipe()

	var stdout, stderr bytes.Buffer
	group, groupCtx := errgroup.WithContext(execCtx)

	group.Go(func() error {
		_, copyErr := io.Copy(&stdout, stdoutReader)
		return copyErr
	})
	group.Go(func() error {
		_, copyErr := io.Copy(&stderr, stderrReader)
		return copyErr
	})
	group.Go(func() error {
		defer stdoutWriter.Close()
		defer stderrWriter.Close()
		return executor.StreamWithContext(groupCtx, remotecommand.StreamOptions{
			Stdout: stdoutWriter,
			Stderr: stderrWriter,
		})
	})

	if err := group.Wait(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || execCtx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("command timed out after %d seconds", timeoutSecs)
		}
		// A non-zero exit still carries output worth classifying; the remote
		// tool reports its errors as text, not exit status.
		var exitErr k8sexec.CodeExitError
		if errors.As(err, &exitErr) {
			return reconcileOutput(stdout.String(), stderr.String()), nil
		}
		return "", fmt.Errorf("failed to execute command in pod: %w", err)
	}

	output := reconcileOutput(stdout.String(), stderr.String())
	c.logger.Debugf("Command output: %s", output)
	return output, nil
}

// reconcileOutput merges the two output channels. Heuristic, not protocol:
// stderr alone becomes the result, stderr containing "Error" is appended
// after stdout, anything else returns stdout alone.
func reconcileOutput(stdout, stderr string) string {
	trimmedStdout := bytes.TrimSpace([]byte(stdout))
	trimmedStderr := bytes.TrimSpace([]byte(stderr))

	if len(trimmedStdout) == 0 && len(trimmedStderr) > 0 {
		return stderr
	}
	if len(trimmedStderr) > 0 && bytes.Contains([]byte(stderr), []byte("Error")) {
		return fmt.Sprintf("%s\n%s", stdout, stderr)
	}
	return stdout
}

// ReadFile reads a single file from a pod container through the exec path
func (c *Client) ReadFile(ctx context.Context, namespace, pod, container, path string) (string, error) {
	output, err := c.Exec(ctx, namespace, pod, container, []string{"cat", path}, readFileTimeoutSecs)
	if err != nil {
		return "", fmt.Errorf("failed to read file '%s' from pod: %w", path, err)
	}
	return output, nil
}

// EnvValue is one requested environment entry from a pod spec. Found reports
// whether any container declared the name; absence is not an error here - the
// caller decides whether it is fatal.
type EnvValue struct {
	Name  string
	Value string
	Found bool
}

// GetEnvValues fetches the pod spec once and resolves the requested
// environment variable names across all containers. Results are positionally
// aligned with names; the first container declaring a name wins.
func (c *Client) GetEnvValues(ctx context.Context, namespace, pod string, names []string) ([]EnvValue, error) {
	podSpec, err := c.clientset.CoreV1().Pods(namespace).Get(ctx, pod, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get pod: %w", err)
	}

	results := make([]EnvValue, len(names))
	for i, name := range names {
		results[i] = EnvValue{Name: name}
	}

	for _, container := range podSpec.Spec.Containers {
		for _, envVar := range container.Env {
			for i, name := range names {
				if envVar.Name == name && !results[i].Found {
					results[i].Value = envVar.Value
					results[i].Found = true
				}
			}
		}
	}

	return results, nil
}
