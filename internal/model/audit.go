// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

// Audit log actions.
const (
	AuditCMSUpdate          = "CMS_UPDATE"
	AuditCMSRollback        = "CMS_ROLLBACK"
	AuditIntegrationsUpdate = "INTEGRATIONS_UPDATE"
	AuditLandingsUpdate     = "LANDINGS_UPDATE"
	AuditCampaignSend       = "CAMPAIGN_SEND"
	AuditUserCreate         = "USER_CREATE"
)

// Audit log resources.
const (
	ResourceCMSSnapshot = "cms_snapshot"
	ResourceCampaign    = "campaign"
	ResourceAdminUser   = "admin_user"
)
