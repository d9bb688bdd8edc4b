// Package deployer adapts the platform's application, task, and scheduler
// resources into deployment, launch, and schedule operations.
//
// The package exposes three orchestrators sharing one platform client:
//
//   - AppDeployer drives long-running application deployments and reports
//     aggregate and per-instance status.
//   - TaskLauncher drives the package/droplet/task lifecycle for one-shot
//     executions.
//   - Scheduler manages recurring launches through the external scheduler
//     service.
//
// Orchestrators never trust remote state they have not just observed:
// every lifecycle transition is confirmed by bounded polling before the
// next step runs.
package deployer
