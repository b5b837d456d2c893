package registry

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	ecrtypes "github.com/aws/aws-sdk-go-v2/service/ecr/types"
)

// API is the slice of the image registry the engine drives.
type API interface {
	DescribeRepositories(ctx context.Context, params *ecr.DescribeRepositoriesInput, optFns ...func(*ecr.Options)) (*ecr.DescribeRepositoriesOutput, error)
	CreateRepository(ctx context.Context, params *ecr.CreateRepositoryInput, optFns ...func(*ecr.Options)) (*ecr.CreateRepositoryOutput, error)
	DeleteRepository(ctx context.Context, params *ecr.DeleteRepositoryInput, optFns ...func(*ecr.Options)) (*ecr.DeleteRepositoryOutput, error)
}

// Client manages per-project image repositories.
type Client struct {
	api API
}

func New(api API) *Client {
	return &Client{api: api}
}

func repositoryName(projectID string) string {
	return "skylift/" + projectID
}

// EnsureRepository returns the project's repository URI, creating the
// repository on first use.
func (c *Client) EnsureRepository(ctx context.Context, projectID string) (string, error) {
	name := repositoryName(projectID)

	existing, err := c.api.DescribeRepositories(ctx, &ecr.DescribeRepositoriesInput{
		RepositoryNames: []string{name},
	})
	if err == nil && len(existing.Repositories) > 0 {
		return aws.ToString(existing.Repositories[0].RepositoryUri), nil
	}
	var notFound *ecrtypes.RepositoryNotFoundException
	if err != nil && !errors.As(err, &notFound) {
		return "", fmt.Errorf("failed to describe repository %s: %w", name, err)
	}

	created, err := c.api.CreateRepository(ctx, &ecr.CreateRepositoryInput{
		RepositoryName: aws.String(name),
		Tags: []ecrtypes.Tag{
			{Key: aws.String("managed-by"), Value: aws.String("skylift")},
			{Key: aws.String("skylift:project"), Value: aws.String(projectID)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create repository %s: %w", name, err)
	}

	log.Printf("[Registry] Created repository %s", name)
	return aws.ToString(created.Repository.RepositoryUri), nil
}

// DeleteRepository removes the project's repository and all its images.
// A repository that is already gone counts as success.
func (c *Client) DeleteRepository(ctx context.Context, projectID string) error {
	name := repositoryName(projectID)

	_, err := c.api.DeleteRepository(ctx, &ecr.DeleteRepositoryInput{
		RepositoryName: aws.String(name),
		Force:          true,
	})
	if err != nil {
		var notFound *ecrtypes.RepositoryNotFoundException
		if errors.As(err, &notFound) {
			log.Printf("[Registry] Repository not found: %s", name)
			return nil
		}
		return fmt.Errorf("failed to delete repository %s: %w", name, err)
	}

	log.Printf("[Registry] Deleted repository %s", name)
	return nil
}
