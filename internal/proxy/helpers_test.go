// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package proxy

import "go.uber.org/zap"

func zapNop() *zap.Logger { return zap.NewNop() }
