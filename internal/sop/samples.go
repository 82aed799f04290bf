package sop

// sampleDocuments is the seed corpus used by the seed command and the
// SEED_SAMPLES startup option. In a real deployment these would be loaded
// from client documentation.
var sampleDocuments = []Document{
	{
		TenantID: "tenant1",
		Title:    "Password Reset Procedure",
		Category: "password_reset",
		Tags:     []string{"authentication", "security", "user_management"},
		Body: `Password Reset Standard Operating Procedure

Purpose: This procedure outlines the steps to safely reset user passwords for employees who have forgotten their credentials or are locked out of their accounts.

Prerequisites: Verify user identity through secondary authentication (email or phone). Confirm the user is authorized in the company directory. Check that the account is not under security review or suspended.

Step 1: Identity Verification. Contact the user through their registered email or phone number. Ask them to provide their full name, employee ID or username, department, and manager name. Never reset a password without proper verification.

Step 2: Check Account Status. Log into the Active Directory or identity provider console. Verify that the account exists and is active, that it is not locked due to security violations, and that the user has the appropriate permissions for their role.

Step 3: Generate Temporary Password. Use the identity provider's password generation tool to create a secure temporary password: minimum 12 characters, mixed case, numbers and special characters, and not matching any of the user's previous 5 passwords.

Step 4: Reset Password. In the identity management console navigate to the user's account, select Reset Password, enter the temporary password, and check "User must change password at next login". Set password expiration to 24 hours if available.

Step 5: Communicate New Password. Send the temporary password to the user through a secure channel. Use the company's secure messaging system if available, otherwise call the user and read the password over the phone. Never send passwords via unencrypted email.

Step 6: Verify Successful Login. Ask the user to log in with the temporary password, set a new permanent password, and confirm access to their core applications. Close the ticket with a note of the verification steps performed.`,
		Metadata: map[string]any{
			"version":                "2.1",
			"approval_required":      true,
			"estimated_time_minutes": 8,
		},
	},
	{
		TenantID: "tenant1",
		Title:    "System Restart Procedure",
		Category: "system_restart",
		Tags:     []string{"maintenance", "troubleshooting", "performance"},
		Body: `System Restart Standard Operating Procedure

Purpose: Safely restart a workstation or server that is slow, frozen, or not responding, while minimizing data loss and downtime.

Step 1: Assess System State. Check the remote monitoring dashboard for the machine. Record CPU, memory, and disk utilization. Identify any processes consuming abnormal resources before deciding a restart is necessary.

Step 2: Notify the User. Inform the user that a restart is pending and ask them to save open work. For servers, check the maintenance calendar and notify all affected users with at least 15 minutes of warning.

Step 3: Save State and Logs. Export recent system and application event logs to the central log store so the root cause can be investigated after the restart. Note any services that are expected to start automatically.

Step 4: Initiate Restart. Trigger a graceful restart through the RMM tool. If the machine does not respond to a graceful restart within 5 minutes, escalate to a forced restart and record that a forced restart was required.

Step 5: Verify Recovery. Confirm the machine comes back online, all expected services are running, and the user can log in. Compare post-restart resource utilization with the values recorded in step 1.

Step 6: Document. Record the restart time, the reason, whether it was graceful or forced, and the verification results in the ticket.`,
		Metadata: map[string]any{
			"version":                "1.8",
			"approval_required":      true,
			"estimated_time_minutes": 15,
		},
	},
	{
		TenantID: "tenant1",
		Title:    "VPN Access Setup",
		Category: "vpn_access",
		Tags:     []string{"network", "remote_access", "security"},
		Body: `VPN Access Setup Standard Operating Procedure

Purpose: Provision secure remote network access for an employee who needs to work from home or connect remotely.

Step 1: Validate the Request. Confirm the request includes manager approval and a business justification. Check that the user's role permits remote access under the client's security policy.

Step 2: Verify Device Compliance. Ensure the device that will connect has current OS patches, endpoint protection installed, and disk encryption enabled. Non-compliant devices must be remediated before access is granted.

Step 3: Create the VPN Profile. In the firewall or VPN concentrator console, create a user profile in the appropriate access group. Apply the least-privilege network segment for the user's role.

Step 4: Configure Multi-Factor Authentication. Enroll the user in the MFA system and verify a successful MFA challenge before distributing any connection details.

Step 5: Deploy the Client. Push the VPN client to the user's device through the management tool, or send the download link with step-by-step installation instructions.

Step 6: Test the Connection. Schedule a short call with the user, establish a VPN session together, and verify access to the required internal resources and nothing more. Document the granted access scope in the ticket.`,
		Metadata: map[string]any{
			"version":                "3.0",
			"approval_required":      true,
			"estimated_time_minutes": 25,
		},
	},
	{
		TenantID: "tenant1",
		Title:    "Backup Verification Procedure",
		Category: "backup_verification",
		Tags:     []string{"backup", "disaster_recovery", "data_protection"},
		Body: `Backup Verification Standard Operating Procedure

Purpose: Verify that scheduled backup jobs completed successfully and that backup data is restorable.

Step 1: Review Job Status. Open the backup console and review all jobs from the last 24 hours. Record any jobs that failed, were skipped, or completed with warnings.

Step 2: Check Storage Capacity. Verify the backup repository has sufficient free space for the next retention cycle. Flag repositories above 80 percent utilization.

Step 3: Validate Backup Integrity. Run the backup software's integrity check on a sample of the most recent restore points. Confirm checksums match and no media errors were reported.

Step 4: Perform Test Restore. At least weekly, restore a sample file set to an isolated location. Verify file integrity and accessibility, then document the test results.

Step 5: Report Issues. For any failed backups, investigate the root cause such as disk space, network, or permissions. Re-run failed jobs, escalate persistent failures to a senior engineer, and update the disaster recovery team.

Step 6: Documentation. Record the verification in the ticketing system: date and time, jobs checked and their status, issues found and their resolution, and test restore results if performed.`,
		Metadata: map[string]any{
			"version":                "1.5",
			"approval_required":      false,
			"estimated_time_minutes": 15,
		},
	},
	{
		TenantID: "tenant2",
		Title:    "Printer Troubleshooting Guide",
		Category: "printer_issue",
		Tags:     []string{"hardware", "troubleshooting"},
		Body: `Printer Troubleshooting Standard Operating Procedure

Purpose: Restore printing for a user who cannot print or whose print jobs are stuck in the queue.

Step 1: Identify the Printer. Confirm which printer the user is targeting and whether the problem affects only this user or everyone on that device.

Step 2: Clear the Print Queue. On the print server or the user's workstation, cancel stuck jobs and restart the spooler service. Ask the user to retry a test page.

Step 3: Power Cycle the Device. If the queue is clear but nothing prints, power the printer off, wait 30 seconds, and power it back on. Verify the device shows ready with no error lights.

Step 4: Check Connectivity and Drivers. Confirm the printer responds on the network and the workstation has the current driver. Reinstall the driver if the test page fails after the power cycle.

Step 5: Escalate Hardware Faults. If the printer reports a hardware error after these steps, open a vendor service request and point the user at the nearest working printer in the meantime.`,
		Metadata: map[string]any{
			"version":                "1.2",
			"approval_required":      false,
			"estimated_time_minutes": 10,
		},
	},
}

// SampleDocuments returns the seed SOPs belonging to the given tenant.
func SampleDocuments(tenantID string) []Document {
	var docs []Document
	for _, d := range sampleDocuments {
		if d.TenantID == tenantID {
			docs = append(docs, d)
		}
	}
	return docs
}

// AllSampleDocuments returns the full seed corpus across tenants.
func AllSampleDocuments() []Document {
	return append([]Document(nil), sampleDocuments...)
}

// SampleTenants returns the distinct tenant ids present in the seed corpus.
func SampleTenants() []string {
	seen := make(map[string]bool)
	var tenants []string
	for _, d := range sampleDocuments {
		if !seen[d.TenantID] {
			seen[d.TenantID] = true
			tenants = append(tenants, d.TenantID)
		}
	}
	return tenants
}
