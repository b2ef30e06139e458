package commands

import (
	"fmt"

	"github.com/meltingprovince/virtualset/internal/api/v1/client"
	"github.com/meltingprovince/virtualset/internal/auth"
	"github.com/meltingprovince/virtualset/internal/config"
	"github.com/meltingprovince/virtualset/internal/logger"
	"github.com/meltingprovince/virtualset/internal/session"
)

var (
	// clientInstance is a singleton instance of the webhook client
	clientInstance client.Client
	// tokenProvider is resolved once per process from the host settings
	tokenProvider auth.TokenProvider
)

// getAPIClient returns the webhook client, creating it if necessary
func getAPIClient() (client.Client, error) {
	if clientInstance != nil {
		return clientInstance, nil
	}

	c, err := currentConfig()
	if err != nil {
		return nil, err
	}

	clientInstance, err = client.NewClient(&client.Options{
		BaseURL:    c.WebhookURL,
		Timeout:    c.RequestTimeout,
		OutputType: c.OutputType,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating webhook client: %w", err)
	}
	return clientInstance, nil
}

// getTokenProvider negotiates the host once and picks the provider variant
func getTokenProvider() (auth.TokenProvider, error) {
	if tokenProvider != nil {
		return tokenProvider, nil
	}

	c, err := currentConfig()
	if err != nil {
		return nil, err
	}

	host := auth.HostContext{InitData: c.InitData}
	if c.HostUserID != "" || c.HostUsername != "" {
		host.User = &auth.Identity{ID: c.HostUserID, Username: c.HostUsername}
	}

	tokenProvider = auth.NewProvider(auth.Negotiate(host), c.IsProduction())
	logger.Debugf("Using %s token provider", tokenProvider.Kind())
	return tokenProvider, nil
}

// sessionOptions maps the loaded config onto session options
func sessionOptions(c *config.Config) session.Options {
	return session.Options{
		PollInterval:    c.PollInterval,
		MaxPollFailures: c.MaxPollFailures,
		MaxPollBackoff:  c.MaxPollBackoff,
		RequestTimeout:  c.RequestTimeout,
	}
}
