package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"contract-intel-client/api"
)

// ConnectIntegration creates a named instance of an integration type.
// The instance appears immediately in connecting status and transitions
// to connected (with backend-confirmed fields) or error when the remote
// call resolves. Instances of the same type are keyed by name: a
// reconnect under an existing name replaces that instance.
func (c *Container) ConnectIntegration(ctx context.Context, integType, instanceName string, params map[string]any, selectedTables []string) error {
	instanceName = strings.TrimSpace(instanceName)
	if instanceName == "" {
		return fmt.Errorf("instance name is required")
	}
	if !KnownType(integType) {
		return fmt.Errorf("unknown integration type: %s", integType)
	}

	databaseName := synthesizeDatabaseName(integType, instanceName)
	now := time.Now()

	c.mu.Lock()
	if !c.initialized {
		c.mu.Unlock()
		return ErrNotInitialized
	}
	integ := c.findIntegrationLocked(integType)
	pending := IntegrationInstance{
		ID:               uuid.NewString(),
		Name:             instanceName,
		DatabaseName:     databaseName,
		Status:           InstanceConnecting,
		ConnectionParams: params,
		SelectedTables:   selectedTables,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	upsertInstanceByName(integ, pending)
	c.mu.Unlock()

	resp, err := c.backend.CreateIntegration(ctx, api.IntegrationCreateRequest{
		IntegrationType:  integType,
		DatabaseName:     databaseName,
		InstanceName:     instanceName,
		ConnectionParams: params,
		SelectedTables:   selectedTables,
		Enabled:          true,
	})

	c.mu.Lock()
	defer c.mu.Unlock()

	integ = c.findIntegrationLocked(integType)
	inst := findInstanceByName(integ, instanceName)
	if inst == nil {
		// Disconnected while connecting; nothing left to reconcile.
		return err
	}

	if err != nil {
		inst.Status = InstanceError
		inst.ErrorMessage = err.Error()
		inst.UpdatedAt = time.Now()
		return fmt.Errorf("failed to connect %s: %w", instanceName, err)
	}

	inst.ID = resp.ID
	inst.DatabaseName = resp.DatabaseName
	inst.Status = InstanceConnected
	inst.ErrorMessage = ""
	inst.ItemCount = resp.ItemCount
	inst.AvailableTables = resp.AvailableTables
	if len(resp.SelectedTables) > 0 {
		inst.SelectedTables = resp.SelectedTables
	}
	inst.UpdatedAt = time.Now()
	c.persistIntegrationLocked(integ)
	return nil
}

// DisconnectIntegration deletes an instance by its backend database
// name. On remote failure the instance stays visible, marked error,
// rather than being silently removed.
func (c *Container) DisconnectIntegration(ctx context.Context, databaseName string) error {
	err := c.backend.DeleteIntegration(ctx, databaseName)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		for _, integ := range c.integrations {
			if inst := findInstanceByDatabase(integ, databaseName); inst != nil {
				inst.Status = InstanceError
				inst.ErrorMessage = err.Error()
				inst.UpdatedAt = time.Now()
				break
			}
		}
		return fmt.Errorf("failed to disconnect %s: %w", databaseName, err)
	}

	for _, integ := range c.integrations {
		for i, inst := range integ.Instances {
			if inst.DatabaseName == databaseName {
				integ.Instances = append(integ.Instances[:i], integ.Instances[i+1:]...)
				break
			}
		}
	}
	for _, integ := range c.integrations {
		c.persistIntegrationLocked(integ)
	}
	return nil
}

// SyncIntegrationInstance triggers a remote sync for one instance and
// refreshes its lastSync timestamp. Failures propagate to the caller,
// who decides the user-facing treatment.
func (c *Container) SyncIntegrationInstance(ctx context.Context, databaseName string) error {
	if err := c.backend.SyncIntegration(ctx, databaseName); err != nil {
		return err
	}

	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, integ := range c.integrations {
		if inst := findInstanceByDatabase(integ, databaseName); inst != nil {
			inst.LastSync = &now
			inst.UpdatedAt = now
			c.persistIntegrationLocked(integ)
			break
		}
	}
	return nil
}

// TestIntegrationConnection probes credentials with a throwaway name.
// It never mutates state; transport errors collapse to false.
func (c *Container) TestIntegrationConnection(ctx context.Context, integType string, params map[string]any) bool {
	name := fmt.Sprintf("test_%s_%d", sanitizeName(integType), time.Now().Unix())
	return c.backend.TestIntegration(ctx, api.IntegrationTestRequest{
		IntegrationType:  integType,
		DatabaseName:     name,
		InstanceName:     name,
		ConnectionParams: params,
	})
}

// GetIntegrationTables lists the tables a connection exposes. With
// params it creates a temporary connection and always deletes it
// afterwards, even when the table fetch fails; a failed cleanup is
// logged, never raised. Without params it reads from the existing
// connected instance of that type.
func (c *Container) GetIntegrationTables(ctx context.Context, integType string, params map[string]any) ([]api.TableInfo, error) {
	if params == nil {
		c.mu.Lock()
		integ := c.findIntegrationLocked(integType)
		var databaseName string
		if integ != nil {
			for _, inst := range integ.Instances {
				if inst.Status == InstanceConnected {
					databaseName = inst.DatabaseName
					break
				}
			}
		}
		c.mu.Unlock()

		if databaseName == "" {
			return nil, fmt.Errorf("no connected %s instance", integType)
		}
		return c.backend.ListTables(ctx, databaseName)
	}

	tempName := fmt.Sprintf("temp_%s_%d", sanitizeName(integType), time.Now().Unix())
	resp, err := c.backend.CreateIntegration(ctx, api.IntegrationCreateRequest{
		IntegrationType:  integType,
		DatabaseName:     tempName,
		InstanceName:     tempName,
		ConnectionParams: params,
		Enabled:          false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary connection: %w", err)
	}

	tables, listErr := c.backend.ListTables(ctx, resp.DatabaseName)

	if err := c.backend.DeleteIntegration(ctx, resp.DatabaseName); err != nil {
		c.log.Warn().Err(err).Str("database", resp.DatabaseName).Msg("failed to clean up temporary connection")
	}

	if listErr != nil {
		return nil, fmt.Errorf("failed to fetch tables: %w", listErr)
	}
	return tables, nil
}

// synthesizeDatabaseName builds the backend-facing handle from the type
// and sanitized instance name; the timestamp suffix avoids collisions.
func synthesizeDatabaseName(integType, instanceName string) string {
	return fmt.Sprintf("%s_%s_%d", integType, sanitizeName(instanceName), time.Now().Unix())
}

// sanitizeName lowercases and strips everything but letters and digits.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (c *Container) findIntegrationLocked(integType string) *Integration {
	for _, integ := range c.integrations {
		if integ.Type == integType {
			return integ
		}
	}
	return nil
}

func upsertInstanceByName(integ *Integration, inst IntegrationInstance) {
	for i := range integ.Instances {
		if integ.Instances[i].Name == inst.Name {
			integ.Instances[i] = inst
			return
		}
	}
	integ.Instances = append(integ.Instances, inst)
}

func findInstanceByName(integ *Integration, name string) *IntegrationInstance {
	if integ == nil {
		return nil
	}
	for i := range integ.Instances {
		if integ.Instances[i].Name == name {
			return &integ.Instances[i]
		}
	}
	return nil
}

func findInstanceByDatabase(integ *Integration, databaseName string) *IntegrationInstance {
	for i := range integ.Instances {
		if integ.Instances[i].DatabaseName == databaseName {
			return &integ.Instances[i]
		}
	}
	return nil
}
