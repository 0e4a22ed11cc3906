package sitenotice_sdk

/* @title           Site Notice SDK API
@version         1.0
@description     Site Notice SDK API documentation
@host            localhost:6789
@BasePath        /api/v1
@securityDefinitions.apikey BearerAuth
@in header
@name Authorization
*/

/* This file is now split into:
- handler_notice.go
- handler_admin.go
- handler_report.go
*/
